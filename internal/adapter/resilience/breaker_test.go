package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

type stubGeocoder struct {
	calls int
	err   error
}

func (s *stubGeocoder) Resolve(context.Context, string) (domain.Coordinate, error) {
	s.calls++
	return domain.Coordinate{Lat: -23.5, Lon: -46.6}, s.err
}

type stubSource struct {
	calls int
	err   error
}

func (s *stubSource) Fetch(context.Context, domain.Coordinate, domain.DateRange) (domain.IrradianceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return domain.IrradianceSeries{{Value: 5}}, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testSettings() Settings {
	return Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, ConsecutiveFailures: 3}
}

func TestGeocoder_PassesThrough(t *testing.T) {
	inner := &stubGeocoder{}
	g := NewGeocoder(inner, testSettings(), observability.NewMetricsForTesting(), discardLogger())

	coord, err := g.Resolve(context.Background(), "01310-100")
	require.NoError(t, err)
	assert.Equal(t, -23.5, coord.Lat)
	assert.Equal(t, 1, inner.calls)
}

func TestGeocoder_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubGeocoder{err: domain.ErrTransientFetch}
	metrics := observability.NewMetricsForTesting()
	g := NewGeocoder(inner, testSettings(), metrics, discardLogger())

	for range 3 {
		_, err := g.Resolve(context.Background(), "01310-100")
		require.ErrorIs(t, err, domain.ErrTransientFetch)
	}

	_, err := g.Resolve(context.Background(), "01310-100")
	require.ErrorIs(t, err, domain.ErrTransientFetch)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls, "open breaker must not call upstream")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.BreakerState.WithLabelValues("geocode")))
}

func TestGeocoder_NotFoundDoesNotTrip(t *testing.T) {
	inner := &stubGeocoder{err: domain.ErrNotFound}
	g := NewGeocoder(inner, testSettings(), observability.NewMetricsForTesting(), discardLogger())

	for range 10 {
		_, err := g.Resolve(context.Background(), "00000-000")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 10, inner.calls)
}

func TestIrradianceSource_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubSource{err: errors.New("boom")}
	s := NewIrradianceSource(inner, testSettings(), observability.NewMetricsForTesting(), discardLogger())

	for range 3 {
		_, err := s.Fetch(context.Background(), domain.Coordinate{}, domain.DateRange{})
		require.EqualError(t, err, "boom")
	}

	_, err := s.Fetch(context.Background(), domain.Coordinate{}, domain.DateRange{})
	require.ErrorIs(t, err, domain.ErrTransientFetch)
	assert.Equal(t, 3, inner.calls)
}

func TestIrradianceSource_Success(t *testing.T) {
	inner := &stubSource{}
	s := NewIrradianceSource(inner, Settings{}, observability.NewMetricsForTesting(), discardLogger())

	series, err := s.Fetch(context.Background(), domain.Coordinate{}, domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, series, 1)
}
