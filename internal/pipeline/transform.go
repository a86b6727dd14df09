package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
)

// Outcome message headers.
const (
	HeaderAssessmentKind = "assessment_kind"
	HeaderProcessedAt    = "processed_at"
)

// Assessor runs impact and viability assessments.
type Assessor interface {
	CalculateImpact(ctx context.Context, consumption float64, postalCode string, dateRange *domain.DateRange) (domain.ImpactResult, error)
	EvaluateViability(ctx context.Context, postalCode string, panel domain.PanelSpec) (domain.ViabilityResult, error)
}

// AssessmentTransformer implements Transformer by decoding an
// AssessmentRequest and running it through an Assessor. Assessment failures
// become error outcomes; only undecodable or unroutable messages fail.
type AssessmentTransformer struct {
	assessor Assessor
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTransformer creates an AssessmentTransformer.
func NewTransformer(assessor Assessor, clock clockwork.Clock, logger *slog.Logger) *AssessmentTransformer {
	return &AssessmentTransformer{
		assessor: assessor,
		clock:    clock,
		logger:   logger,
	}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	var req domain.AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.OutputMessage{}, fmt.Errorf("decode assessment request: %w", err)
	}
	if req.Kind != domain.AssessmentImpact && req.Kind != domain.AssessmentViability {
		return domain.OutputMessage{}, fmt.Errorf("unknown assessment kind %q", req.Kind)
	}
	if req.ID == "" {
		if len(raw.Key) > 0 {
			req.ID = string(raw.Key)
		} else {
			req.ID = uuid.NewString()
		}
	}

	outcome := t.assess(ctx, req)

	value, err := json.Marshal(outcome)
	if err != nil {
		return domain.OutputMessage{}, fmt.Errorf("encode assessment outcome: %w", err)
	}

	return domain.OutputMessage{
		Key:   []byte(req.ID),
		Value: value,
		Headers: map[string]string{
			HeaderAssessmentKind: req.Kind,
			HeaderProcessedAt:    outcome.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

func (t *AssessmentTransformer) assess(ctx context.Context, req domain.AssessmentRequest) domain.AssessmentOutcome {
	outcome := domain.AssessmentOutcome{
		RequestID:  req.ID,
		Kind:       req.Kind,
		PostalCode: req.PostalCode,
	}

	var err error
	switch req.Kind {
	case domain.AssessmentImpact:
		var dateRange *domain.DateRange
		if req.StartDate != "" || req.EndDate != "" {
			r, perr := domain.ParseDateRange(req.StartDate, req.EndDate)
			if perr != nil {
				err = domain.NewAssessmentError(domain.KindInvalidInput, perr.Error(), nil)
				break
			}
			dateRange = &r
		}
		var res domain.ImpactResult
		res, err = t.assessor.CalculateImpact(ctx, req.EnergyConsumption, req.PostalCode, dateRange)
		if err == nil {
			outcome.Impact = &res
		}
	case domain.AssessmentViability:
		var res domain.ViabilityResult
		res, err = t.assessor.EvaluateViability(ctx, req.PostalCode, domain.PanelSpec{
			Wattage:    req.PanelOutput,
			Efficiency: req.PanelEfficiency,
		})
		if err == nil {
			outcome.Viability = &res
		}
	}

	if err != nil {
		outcome.ErrorKind = domain.KindOf(err)
		outcome.Error = publicMessage(err)
		t.logger.Debug("assessment request failed", "request_id", req.ID, "error_kind", outcome.ErrorKind, "error", err)
	}
	outcome.ProcessedAt = t.clock.Now().UTC()
	return outcome
}

// publicMessage returns the user-facing part of an assessment error.
func publicMessage(err error) string {
	var ae *domain.AssessmentError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
