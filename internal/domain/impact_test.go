package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactMonthlyEnergyPerPanel(t *testing.T) {
	// 400 * 5 / 1000 * 0.8 * 30
	assert.InDelta(t, 48.0, ImpactMonthlyEnergyPerPanel(5), 1e-9)
}

func TestCalculateImpact(t *testing.T) {
	result, err := CalculateImpact(300, 5)
	require.NoError(t, err)

	assert.Equal(t, 6, result.PanelCount) // floor(300 / 48) = 6.25 -> 6
	assert.Equal(t, 400, result.PanelWattage)
	assert.Equal(t, 80, result.PanelEfficiencyPct)
	assert.Equal(t, 48.0, result.MonthlyEnergyPerPanel)
	assert.Equal(t, 270.0, result.CO2ReductionMonthly)
	assert.Equal(t, 5.0, result.AverageDailyIrradiance)
}

func TestCalculateImpact_TruncatesPanelCount(t *testing.T) {
	// 95.99 / 48 = 1.99 -> 1, never rounded up.
	result, err := CalculateImpact(95.99, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PanelCount)

	result, err = CalculateImpact(10, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PanelCount)
}

func TestCalculateImpact_RoundsOnlyOutput(t *testing.T) {
	irr := 4.56789
	consumption := 321.987

	result, err := CalculateImpact(consumption, irr)
	require.NoError(t, err)

	monthly := 400 * irr / 1000 * 0.8 * 30
	assert.InDelta(t, monthly, result.MonthlyEnergyPerPanel, 0.01)
	assert.Equal(t, int(math.Floor(consumption/monthly)), result.PanelCount)
	assert.InDelta(t, consumption*0.9, result.CO2ReductionMonthly, 0.01)
	assert.Equal(t, 5.0, result.AverageDailyIrradiance)
}

func TestCalculateImpact_MonotonicInConsumption(t *testing.T) {
	prev := -1
	for c := 1.0; c <= 2000; c += 7.3 {
		result, err := CalculateImpact(c, 4.2)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.PanelCount, prev, "consumption %v", c)
		prev = result.PanelCount
	}
}

func TestCalculateImpact_NoYield(t *testing.T) {
	for _, irr := range []float64{0, -3, -998} {
		for _, consumption := range []float64{1, 300, 1e9} {
			_, err := CalculateImpact(consumption, irr)
			require.Error(t, err)

			var ae *AssessmentError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, KindNoYield, ae.Kind)
			assert.Equal(t, "resulting energy production is zero or negative", ae.Message)
		}
	}
}

func TestCalculateImpact_InvalidConsumption(t *testing.T) {
	for _, c := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := CalculateImpact(c, 5)
		require.Error(t, err)
		assert.Equal(t, KindInvalidInput, KindOf(err))
	}
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.23, RoundTo(1.2345, 2))
	assert.Equal(t, 1.24, RoundTo(1.2351, 2))
	assert.Equal(t, 5.0, RoundTo(4.5, 0))
	assert.Equal(t, -2.0, RoundTo(-1.5, 0))
}

func TestCalculateImpact_RejectsUnrepresentablePanelCount(t *testing.T) {
	for _, tc := range []struct{ consumption, irr float64 }{
		{1e300, 5},
		{100, 1e-300},
		{math.MaxFloat64, 5},
	} {
		result, err := CalculateImpact(tc.consumption, tc.irr)
		require.Error(t, err, "consumption %v irradiance %v", tc.consumption, tc.irr)
		assert.Equal(t, KindInvalidInput, KindOf(err))
		assert.Zero(t, result.PanelCount)
	}

	// Large but representable counts still succeed.
	result, err := CalculateImpact(48e6+10, 5)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, result.PanelCount)
}
