package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-feasibility-service/internal/config"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestReadinessGroup(t *testing.T) {
	g := NewReadinessGroup()
	require.NoError(t, g.CheckReadiness(context.Background()), "empty group is ready")

	g.Add("database", ReadinessFunc(func(context.Context) error { return nil }))
	require.NoError(t, g.CheckReadiness(context.Background()))

	g.Add("pipeline", ReadinessFunc(func(context.Context) error { return errors.New("not started") }))
	err := g.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Equal(t, "pipeline: not started", err.Error())

	g.Add("pipeline", ReadinessFunc(func(context.Context) error { return nil }))
	require.NoError(t, g.CheckReadiness(context.Background()))
}

func TestMetricsForTesting_Usable(t *testing.T) {
	m := NewMetricsForTesting()
	m.Assessments.WithLabelValues("impact", "success").Inc()
	m.CacheLookups.WithLabelValues("geocode", "hit").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assessments.WithLabelValues("impact", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("geocode", "hit")))
}
