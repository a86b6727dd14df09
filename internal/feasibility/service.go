// Package feasibility runs solar assessments end to end: resolve the postal
// code, fetch the irradiance series, aggregate it and compute the result.
package feasibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

// Service is safe for concurrent use.
type Service struct {
	geocoder domain.Geocoder
	source   domain.IrradianceSource
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for default date ranges.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New creates a Service.
func New(geocoder domain.Geocoder, source domain.IrradianceSource, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		geocoder: geocoder,
		source:   source,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateImpact estimates how many fixed-rating panels cover a monthly
// consumption (kWh). A nil dateRange means the last 90 days.
// Any error returned is a *domain.AssessmentError.
func (s *Service) CalculateImpact(ctx context.Context, consumption float64, postalCode string, dateRange *domain.DateRange) (result domain.ImpactResult, err error) {
	defer s.observe(domain.AssessmentImpact, s.clock.Now(), &err)

	r := domain.DefaultDateRange(s.clock.Now())
	if dateRange != nil {
		if verr := dateRange.Validate(); verr != nil {
			return domain.ImpactResult{}, domain.NewAssessmentError(domain.KindInvalidInput, verr.Error(), nil)
		}
		r = *dateRange
	}
	if !(consumption > 0) || math.IsInf(consumption, 0) {
		return domain.ImpactResult{}, domain.NewAssessmentError(domain.KindInvalidInput, "energy consumption must be a positive number", nil)
	}

	irr, err := s.averageIrradiance(ctx, postalCode, r)
	if err != nil {
		return domain.ImpactResult{}, err
	}
	return domain.CalculateImpact(consumption, irr)
}

// EvaluateViability decides whether a panel produces at least 120 kWh per
// month at the location, using the last 90 days of irradiance.
// Any error returned is a *domain.AssessmentError.
func (s *Service) EvaluateViability(ctx context.Context, postalCode string, panel domain.PanelSpec) (result domain.ViabilityResult, err error) {
	defer s.observe(domain.AssessmentViability, s.clock.Now(), &err)

	if verr := panel.Validate(); verr != nil {
		return domain.ViabilityResult{}, domain.NewAssessmentError(domain.KindInvalidInput, verr.Error(), nil)
	}

	r := domain.DefaultDateRange(s.clock.Now())
	irr, err := s.averageIrradiance(ctx, postalCode, r)
	if err != nil {
		return domain.ViabilityResult{}, err
	}
	return domain.EvaluateViability(panel, irr, r)
}

// averageIrradiance runs the resolve, fetch and aggregate stages.
func (s *Service) averageIrradiance(ctx context.Context, postalCode string, r domain.DateRange) (float64, error) {
	pc := domain.NormalizePostalCode(postalCode)
	if pc == "" {
		return 0, domain.NewAssessmentError(domain.KindInvalidInput, "postal code is required", nil)
	}

	coord, err := s.geocoder.Resolve(ctx, pc)
	if err != nil {
		return 0, stageError(fmt.Sprintf("could not resolve coordinates for postal code %q", pc), err)
	}

	series, err := s.source.Fetch(ctx, coord, r)
	if err != nil {
		return 0, stageError("could not fetch solar radiation data", err)
	}

	irr, err := domain.AggregateIrradiance(series)
	if err != nil {
		return 0, stageError("no solar radiation data for the requested period", err)
	}

	s.logger.Debug("irradiance aggregated",
		"postal_code", pc,
		"lat", coord.Lat,
		"lon", coord.Lon,
		"samples", len(series),
		"average", irr,
	)
	return irr, nil
}

// stageError classifies an adapter error. Transport failures get a generic
// message regardless of stage.
func stageError(msg string, err error) *domain.AssessmentError {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindTransientFetch:
		msg = "upstream service temporarily unavailable"
	case domain.KindDataUnavailable:
		msg = "solar radiation data unavailable"
	case domain.KindInternal:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = domain.KindTransientFetch
			msg = "upstream service temporarily unavailable"
		}
	}
	return domain.NewAssessmentError(kind, msg, err)
}

func (s *Service) observe(kind string, start time.Time, errp *error) {
	s.metrics.AssessmentDuration.WithLabelValues(kind).Observe(s.clock.Since(start).Seconds())
	outcome := "success"
	if *errp != nil {
		outcome = string(domain.KindOf(*errp))
		s.logger.Info("assessment failed", "kind", kind, "error_kind", outcome, "error", *errp)
	}
	s.metrics.Assessments.WithLabelValues(kind, outcome).Inc()
}
