package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthpath/goalengine/internal/models"
)

func baseGoal() models.Goal {
	return models.Goal{
		ID:                  "g1",
		Category:            models.CategoryRetirement,
		TargetAmount:        1_000_000,
		CurrentAmount:       100_000,
		MonthlyContribution: 1000,
		TargetDate:          time.Now().AddDate(20, 0, 0),
		Flexibility:         models.FlexibilityVeryFlexible,
		Allocation:          map[models.AssetClass]float64{models.AssetEquity: 0.6, models.AssetDebt: 0.4},
	}
}

func TestCandidates_FixedFlexibilityExcludesTimeframeAndTarget(t *testing.T) {
	g := baseGoal()
	g.Flexibility = models.FlexibilityFixed
	cands := Candidates(g, models.Profile{Age: 30})

	for _, c := range cands {
		assert.NotEqual(t, models.RecTimeframeExtension, c.Type)
		assert.NotEqual(t, models.RecTargetReduction, c.Type)
	}
}

func TestCandidates_VeryFlexibleIncludesTargetReduction(t *testing.T) {
	g := baseGoal()
	cands := Candidates(g, models.Profile{Age: 30})

	found := false
	for _, c := range cands {
		if c.Type == models.RecTargetReduction {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCandidates_AllocationShiftRespectsAgeCeiling(t *testing.T) {
	g := baseGoal()
	g.Allocation[models.AssetEquity] = 0.85
	g.Allocation[models.AssetDebt] = 0.15
	cands := Candidates(g, models.Profile{Age: 60}) // ceiling 0.60 for older profile

	for _, c := range cands {
		if c.Type != models.RecAllocationShift {
			continue
		}
		mutated := c.Mutate(g)
		assert.LessOrEqual(t, mutated.Allocation[models.AssetEquity], g.Allocation[models.AssetEquity]+1e-9,
			"increase-equity candidate should have been suppressed by the age ceiling: %s", c.Description)
	}
}

func TestCandidates_CashHeavyGoalStillGetsAllocationShifts(t *testing.T) {
	g := baseGoal()
	g.Category = models.CategoryEmergencyFund
	g.Allocation = map[models.AssetClass]float64{models.AssetCash: 0.7, models.AssetDebt: 0.3}
	cands := Candidates(g, models.Profile{Age: 30})

	var shifts []Candidate
	for _, c := range cands {
		if c.Type == models.RecAllocationShift {
			shifts = append(shifts, c)
		}
	}
	require.NotEmpty(t, shifts, "cash/debt-only goal should still get cash↔debt shift candidates")

	for _, c := range shifts {
		mutated := c.Mutate(g)
		var sum float64
		for _, w := range mutated.Allocation {
			assert.GreaterOrEqual(t, w, -1e-9)
			assert.LessOrEqual(t, w, 1+1e-9)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestCandidates_LumpsumRequiresMonthlyIncome(t *testing.T) {
	g := baseGoal()
	withIncome := Candidates(g, models.Profile{MonthlyIncome: 5000})
	withoutIncome := Candidates(g, models.Profile{})

	hasLumpsum := func(cs []Candidate) bool {
		for _, c := range cs {
			if c.Type == models.RecLumpsumInjection {
				return true
			}
		}
		return false
	}
	assert.True(t, hasLumpsum(withIncome))
	assert.False(t, hasLumpsum(withoutIncome))
}

func TestRank_OrdersByProbabilityIncreaseThenDifficulty(t *testing.T) {
	recs := []models.Recommendation{
		{Type: models.RecTargetReduction, ImplementationDifficulty: models.DifficultyHard, Impact: models.RecommendationImpact{ProbabilityIncrease: 0.10}},
		{Type: models.RecContributionIncrease, ImplementationDifficulty: models.DifficultyEasy, Impact: models.RecommendationImpact{ProbabilityIncrease: 0.10}},
		{Type: models.RecLumpsumInjection, ImplementationDifficulty: models.DifficultyModerate, Impact: models.RecommendationImpact{ProbabilityIncrease: 0.20}},
	}
	Rank(recs)

	require.Len(t, recs, 3)
	assert.Equal(t, models.RecLumpsumInjection, recs[0].Type) // highest increase wins outright
	assert.Equal(t, models.RecContributionIncrease, recs[1].Type) // tie broken by lower difficulty
}

func TestGenerate_KeepsCandidatesAboveEpsilonAndClipsTopK(t *testing.T) {
	g := baseGoal()
	baseline := models.ProbabilityResult{SuccessMetrics: models.SuccessMetrics{SuccessProbability: 0.50}}

	reprice := func(ctx context.Context, goal models.Goal, profile models.Profile) (models.ProbabilityResult, error) {
		// Every mutation improves things just enough to clear epsilon.
		return models.ProbabilityResult{SuccessMetrics: models.SuccessMetrics{SuccessProbability: 0.51}}, nil
	}

	recs, err := Generate(context.Background(), g, models.Profile{Age: 30, MonthlyIncome: 4000}, baseline, reprice, Options{TopK: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(recs), 3)
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Impact.ProbabilityIncrease, Epsilon)
	}
}

func TestGenerate_SkipsCandidatesWhoseRepriceFails(t *testing.T) {
	g := baseGoal()
	baseline := models.ProbabilityResult{SuccessMetrics: models.SuccessMetrics{SuccessProbability: 0.50}}

	reprice := func(ctx context.Context, goal models.Goal, profile models.Profile) (models.ProbabilityResult, error) {
		return models.ProbabilityResult{}, assertErr
	}

	recs, err := Generate(context.Background(), g, models.Profile{Age: 30}, baseline, reprice, Options{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

var assertErr = errPricingFailed{}

type errPricingFailed struct{}

func (errPricingFailed) Error() string { return "pricing failed" }
