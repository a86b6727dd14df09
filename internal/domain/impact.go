package domain

import "math"

// Fixed impact parameters.
const (
	ImpactPanelEfficiency = 0.8
	ImpactPanelWattage    = 400.0
	DaysPerMonth          = 30.0
	CO2KgPerKWh           = 0.9
)

// ImpactResult describes how many fixed-rating panels offset a monthly consumption.
type ImpactResult struct {
	PanelCount             int     `json:"panel_count"`
	PanelWattage           int     `json:"panel_wattage"`
	PanelEfficiencyPct     int     `json:"panel_efficiency_pct"`
	MonthlyEnergyPerPanel  float64 `json:"monthly_energy_per_panel"`
	CO2ReductionMonthly    float64 `json:"co2_reduction_monthly"`
	AverageDailyIrradiance float64 `json:"average_daily_irradiance"`
}

// ImpactMonthlyEnergyPerPanel returns the unrounded monthly yield of one
// fixed-rating panel for the given average irradiance.
func ImpactMonthlyEnergyPerPanel(avgIrradiance float64) float64 {
	dailyOutput := ImpactPanelWattage * avgIrradiance / 1000
	dailyEnergy := dailyOutput * ImpactPanelEfficiency
	return dailyEnergy * DaysPerMonth
}

// CalculateImpact derives the impact figures from a monthly consumption (kWh)
// and an aggregated irradiance. A non-positive panel yield is reported as a
// KindNoYield AssessmentError.
func CalculateImpact(consumption, avgIrradiance float64) (ImpactResult, error) {
	if consumption <= 0 || math.IsNaN(consumption) || math.IsInf(consumption, 0) {
		return ImpactResult{}, NewAssessmentError(KindInvalidInput, "energy consumption must be a positive number", nil)
	}

	monthly := ImpactMonthlyEnergyPerPanel(avgIrradiance)
	if monthly <= 0 || math.IsNaN(monthly) {
		return ImpactResult{}, NewAssessmentError(KindNoYield, "resulting energy production is zero or negative", nil)
	}

	panels := math.Floor(consumption / monthly)
	if panels >= math.MaxInt32 {
		return ImpactResult{}, NewAssessmentError(KindInvalidInput, "energy consumption is too large for the available solar yield", nil)
	}

	return ImpactResult{
		PanelCount:             int(panels),
		PanelWattage:           int(ImpactPanelWattage),
		PanelEfficiencyPct:     int(ImpactPanelEfficiency * 100),
		MonthlyEnergyPerPanel:  RoundTo(monthly, 2),
		CO2ReductionMonthly:    RoundTo(consumption*CO2KgPerKWh, 2),
		AverageDailyIrradiance: RoundTo(avgIrradiance, 0),
	}, nil
}

// RoundTo rounds v to the given number of decimal places, half away from zero.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
