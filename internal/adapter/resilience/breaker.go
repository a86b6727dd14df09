// Package resilience guards upstream adapters with circuit breakers so a
// failing geocoder or irradiance service is not hammered while it recovers.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

// Settings tunes a breaker. Zero values fall back to DefaultSettings.
type Settings struct {
	MaxRequests         uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state count reset window
	Timeout             time.Duration // open-state cool down
	ConsecutiveFailures uint32        // trips after this many failures in a row
}

// DefaultSettings returns the breaker settings used by the service.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func newBreaker[T any](name string, s Settings, metrics *observability.Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	def := DefaultSettings()
	if s.MaxRequests == 0 {
		s.MaxRequests = def.MaxRequests
	}
	if s.Interval == 0 {
		s.Interval = def.Interval
	}
	if s.Timeout == 0 {
		s.Timeout = def.Timeout
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = def.ConsecutiveFailures
	}

	metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// Answers the upstream gave deliberately do not count against it.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// rejected maps breaker rejections to a transient fetch failure.
func rejected(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s unavailable: %w: %w", name, domain.ErrTransientFetch, err)
	}
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Geocoder wraps a domain.Geocoder with a circuit breaker.
type Geocoder struct {
	inner domain.Geocoder
	cb    *gobreaker.CircuitBreaker[domain.Coordinate]
}

// NewGeocoder creates a breaker-guarded geocoder.
func NewGeocoder(inner domain.Geocoder, s Settings, metrics *observability.Metrics, logger *slog.Logger) *Geocoder {
	return &Geocoder{
		inner: inner,
		cb:    newBreaker[domain.Coordinate]("geocode", s, metrics, logger),
	}
}

func (g *Geocoder) Resolve(ctx context.Context, postalCode string) (domain.Coordinate, error) {
	coord, err := g.cb.Execute(func() (domain.Coordinate, error) {
		return g.inner.Resolve(ctx, postalCode)
	})
	return coord, rejected("geocoder", err)
}

// IrradianceSource wraps a domain.IrradianceSource with a circuit breaker.
type IrradianceSource struct {
	inner domain.IrradianceSource
	cb    *gobreaker.CircuitBreaker[domain.IrradianceSeries]
}

// NewIrradianceSource creates a breaker-guarded irradiance source.
func NewIrradianceSource(inner domain.IrradianceSource, s Settings, metrics *observability.Metrics, logger *slog.Logger) *IrradianceSource {
	return &IrradianceSource{
		inner: inner,
		cb:    newBreaker[domain.IrradianceSeries]("irradiance", s, metrics, logger),
	}
}

func (s *IrradianceSource) Fetch(ctx context.Context, coord domain.Coordinate, dateRange domain.DateRange) (domain.IrradianceSeries, error) {
	series, err := s.cb.Execute(func() (domain.IrradianceSeries, error) {
		return s.inner.Fetch(ctx, coord, dateRange)
	})
	return series, rejected("irradiance service", err)
}
