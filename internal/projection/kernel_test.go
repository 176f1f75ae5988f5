package projection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthpath/goalengine/internal/models"
)

func TestRunTrial_ZeroYears(t *testing.T) {
	inputs := models.SimulationInputs{InitialAmount: 1000, Years: 0}
	out := RunTrial(inputs, rand.NewSource(1), false)
	assert.Equal(t, 1000.0, out.Terminal)
	assert.False(t, out.Degenerate)
}

func TestRunTrial_AllCashDeterministic(t *testing.T) {
	inputs := models.SimulationInputs{
		InitialAmount:        1000,
		Years:                3,
		ContributionSchedule: []float64{100, 100, 100},
		AllocationSchedule: []map[models.AssetClass]float64{
			{models.AssetCash: 1},
			{models.AssetCash: 1},
			{models.AssetCash: 1},
		},
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetCash: {ExpectedReturn: 0.03, Volatility: 0},
		},
	}
	out := RunTrial(inputs, rand.NewSource(7), true)
	require.False(t, out.Degenerate)
	// With zero volatility, growth is deterministic: v = v*exp(0.03) + 100.
	v := 1000.0
	for i := 0; i < 3; i++ {
		v = v*1.0304545339 + 100 // exp(0.03)
	}
	assert.InDelta(t, v, out.Terminal, 1.0)
	require.Len(t, out.Trajectory, 3)
}

func TestRunTrial_Deterministic_SameSeed(t *testing.T) {
	inputs := models.SimulationInputs{
		InitialAmount:        10000,
		Years:                10,
		ContributionSchedule: make([]float64, 10),
		AllocationSchedule:   repeatAlloc(map[models.AssetClass]float64{models.AssetEquity: 0.6, models.AssetDebt: 0.4}, 10),
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetEquity: {ExpectedReturn: 0.10, Volatility: 0.18},
			models.AssetDebt:   {ExpectedReturn: 0.06, Volatility: 0.05},
		},
	}
	a := RunTrial(inputs, rand.NewSource(42), false)
	b := RunTrial(inputs, rand.NewSource(42), false)
	assert.Equal(t, a.Terminal, b.Terminal)
}

func TestRunTrial_NeverDegenerateUnderSanityClip(t *testing.T) {
	inputs := models.SimulationInputs{
		InitialAmount:        1,
		Years:                50,
		ContributionSchedule: make([]float64, 50),
		AllocationSchedule:   repeatAlloc(map[models.AssetClass]float64{models.AssetEquity: 1}, 50),
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetEquity: {ExpectedReturn: 0.10, Volatility: 0.18},
		},
	}
	for seed := int64(0); seed < 20; seed++ {
		out := RunTrial(inputs, rand.NewSource(seed), false)
		assert.False(t, out.Degenerate)
		assert.False(t, isFinite(out.Terminal) == false)
	}
}

func TestRunTrial_ShockConfigLowersTerminalValue(t *testing.T) {
	base := models.SimulationInputs{
		InitialAmount:        10000,
		Years:                20,
		ContributionSchedule: make([]float64, 20),
		AllocationSchedule:   repeatAlloc(map[models.AssetClass]float64{models.AssetEquity: 1}, 20),
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetEquity: {ExpectedReturn: 0.10, Volatility: 0.18},
		},
	}
	shocked := base
	shocked.Shock = &models.ShockConfig{AnnualProbability: 1.0, Severity: 0.5}

	unshockedOut := RunTrial(base, rand.NewSource(99), false)
	shockedOut := RunTrial(shocked, rand.NewSource(99), false)

	assert.Less(t, shockedOut.Terminal, unshockedOut.Terminal)
}

func TestRunTrial_ZeroProbabilityShockMatchesNoShock(t *testing.T) {
	inputs := models.SimulationInputs{
		InitialAmount:        10000,
		Years:                5,
		ContributionSchedule: make([]float64, 5),
		AllocationSchedule:   repeatAlloc(map[models.AssetClass]float64{models.AssetEquity: 1}, 5),
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetEquity: {ExpectedReturn: 0.10, Volatility: 0.18},
		},
	}
	a := RunTrial(inputs, rand.NewSource(1), false)
	inputs.Shock = &models.ShockConfig{AnnualProbability: 0, Severity: 0.5}
	b := RunTrial(inputs, rand.NewSource(1), false)
	assert.Equal(t, a.Terminal, b.Terminal)
}

func repeatAlloc(alloc map[models.AssetClass]float64, years int) []map[models.AssetClass]float64 {
	out := make([]map[models.AssetClass]float64, years)
	for i := range out {
		out[i] = alloc
	}
	return out
}
