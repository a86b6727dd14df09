package http

import (
	"context"
	"net/http"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Assessor runs impact and viability assessments.
type Assessor interface {
	CalculateImpact(ctx context.Context, consumption float64, postalCode string, dateRange *domain.DateRange) (domain.ImpactResult, error)
	EvaluateViability(ctx context.Context, postalCode string, panel domain.PanelSpec) (domain.ViabilityResult, error)
}

// Numeric fields are pointers so "missing" and "zero" can be told apart;
// range checks belong to the assessment itself.
type impactRequest struct {
	EnergyConsumption *float64 `json:"energy_consumption" validate:"required"`
	PostalCode        string   `json:"postal_code" validate:"required"`
	StartDate         string   `json:"start_date" validate:"required_with=EndDate"`
	EndDate           string   `json:"end_date" validate:"required_with=StartDate"`
}

type viabilityRequest struct {
	PostalCode      string   `json:"postal_code" validate:"required"`
	PanelEfficiency *float64 `json:"panel_efficiency" validate:"required"`
	PanelOutput     *float64 `json:"panel_output" validate:"required"`
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	var req impactRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var dateRange *domain.DateRange
	if req.StartDate != "" {
		dr, err := domain.ParseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		dateRange = &dr
	}

	result, err := s.assessor.CalculateImpact(r.Context(), *req.EnergyConsumption, req.PostalCode, dateRange)
	if err != nil {
		s.writeAssessmentError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleViability(w http.ResponseWriter, r *http.Request) {
	var req viabilityRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	panel := domain.PanelSpec{Wattage: *req.PanelOutput, Efficiency: *req.PanelEfficiency}
	result, err := s.assessor.EvaluateViability(r.Context(), req.PostalCode, panel)
	if err != nil {
		s.writeAssessmentError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}
