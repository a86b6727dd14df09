package observability

import (
	"context"
	"fmt"
	"sync"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ReadinessFunc adapts a function to the readiness checker interface.
type ReadinessFunc func(ctx context.Context) error

// CheckReadiness calls f(ctx).
func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// ReadinessGroup reports ready only when every registered component is ready.
type ReadinessGroup struct {
	mu     sync.RWMutex
	names  []string
	checks map[string]sharedobs.ReadinessChecker
}

// NewReadinessGroup creates an empty group. An empty group is always ready.
func NewReadinessGroup() *ReadinessGroup {
	return &ReadinessGroup{checks: make(map[string]sharedobs.ReadinessChecker)}
}

// Add registers a named component. Adding a name twice replaces the checker.
func (g *ReadinessGroup) Add(name string, c sharedobs.ReadinessChecker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.checks[name]; !ok {
		g.names = append(g.names, name)
	}
	g.checks[name] = c
}

// CheckReadiness returns the first failing component's error, prefixed with its name.
func (g *ReadinessGroup) CheckReadiness(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, name := range g.names {
		if err := g.checks[name].CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
