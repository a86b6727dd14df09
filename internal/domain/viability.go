package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Fixed viability parameters.
const (
	SunlightHoursPerDay = 5.0
	ViabilityThreshold  = 120.0 // kWh per panel per month
)

// PanelSpec describes a caller-provided panel.
type PanelSpec struct {
	Wattage    float64 `json:"wattage"`
	Efficiency float64 `json:"efficiency"`
}

// Validate enforces Wattage > 0 and Efficiency in (0, 1].
func (p PanelSpec) Validate() error {
	if !(p.Wattage > 0) || math.IsInf(p.Wattage, 0) {
		return fmt.Errorf("panel output must be greater than zero, got %v", p.Wattage)
	}
	if !(p.Efficiency > 0 && p.Efficiency <= 1) {
		return fmt.Errorf("panel efficiency must be in (0, 1], got %v", p.Efficiency)
	}
	return nil
}

// ViabilityResult is the verdict for a panel at a location.
type ViabilityResult struct {
	DateRange              DateRange `json:"-"`
	MonthlyEnergyEstimate  float64   `json:"monthly_energy_estimate"`
	AverageDailyIrradiance float64   `json:"average_daily_irradiance"`
	IsViable               bool      `json:"is_viable"`
}

// MarshalJSON renders the date range as ISO start_date/end_date fields.
func (v ViabilityResult) MarshalJSON() ([]byte, error) {
	type alias ViabilityResult
	return json.Marshal(struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		alias
	}{
		StartDate: v.DateRange.StartISO(),
		EndDate:   v.DateRange.EndISO(),
		alias:     alias(v),
	})
}

// ViabilityMonthlyOutput returns the unrounded monthly output of one panel.
func ViabilityMonthlyOutput(panel PanelSpec, avgIrradiance float64) float64 {
	daily := (panel.Wattage * avgIrradiance * SunlightHoursPerDay * panel.Efficiency) / 1000
	return daily * DaysPerMonth
}

// EvaluateViability compares a panel's monthly output against ViabilityThreshold.
func EvaluateViability(panel PanelSpec, avgIrradiance float64, dateRange DateRange) (ViabilityResult, error) {
	if err := panel.Validate(); err != nil {
		return ViabilityResult{}, NewAssessmentError(KindInvalidInput, err.Error(), nil)
	}

	monthly := ViabilityMonthlyOutput(panel, avgIrradiance)
	return ViabilityResult{
		DateRange:              dateRange,
		MonthlyEnergyEstimate:  RoundTo(monthly, 2),
		AverageDailyIrradiance: RoundTo(avgIrradiance, 2),
		IsViable:               monthly >= ViabilityThreshold,
	}, nil
}
