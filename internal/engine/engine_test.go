package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthpath/goalengine/internal/assumptions"
	"github.com/wealthpath/goalengine/internal/cache"
	"github.com/wealthpath/goalengine/internal/config"
	"github.com/wealthpath/goalengine/internal/logging"
	"github.com/wealthpath/goalengine/internal/models"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.Config{
		SimDefaultTrials: 200,
		SimMinTrials:     50,
		CacheMaxEntries:  10,
	}
	prov, err := assumptions.New("")
	require.NoError(t, err)
	c := cache.New(cache.Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	return New(cfg, prov, c, logging.Nop())
}

func retirementGoal() models.Goal {
	return models.Goal{
		ID:                  "goal-1",
		Category:            models.CategoryRetirement,
		TargetAmount:        500_000,
		CurrentAmount:       50_000,
		MonthlyContribution: 800,
		TargetDate:          time.Now().AddDate(15, 0, 0),
		Flexibility:         models.FlexibilitySomewhatFlexible,
		Allocation:          map[models.AssetClass]float64{models.AssetEquity: 0.7, models.AssetDebt: 0.3},
	}
}

func TestAnalyze_AlreadyAchievedShortCircuits(t *testing.T) {
	e := testEngine(t)
	g := retirementGoal()
	g.CurrentAmount = g.TargetAmount + 1

	result, err := e.Analyze(context.Background(), g, models.Profile{Age: 40, MonthlyExpenses: 3000}, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.SuccessMetrics.SuccessProbability)
}

func TestAnalyze_InvalidGoalReturnsError(t *testing.T) {
	e := testEngine(t)
	g := retirementGoal()
	g.TargetAmount = -1

	_, err := e.Analyze(context.Background(), g, models.Profile{}, AnalyzeOptions{})
	assert.ErrorIs(t, err, models.ErrInvalidGoal)
}

func TestAnalyze_ProducesProbabilityInRange(t *testing.T) {
	e := testEngine(t)
	g := retirementGoal()

	result, err := e.Analyze(context.Background(), g, models.Profile{Age: 40, MonthlyExpenses: 3000}, AnalyzeOptions{Seed: 7})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.SuccessMetrics.SuccessProbability, 0.0)
	assert.LessOrEqual(t, result.SuccessMetrics.SuccessProbability, 1.0)
}

func TestAnalyze_SameInputsHitCache(t *testing.T) {
	e := testEngine(t)
	g := retirementGoal()
	profile := models.Profile{Age: 40, MonthlyExpenses: 3000}

	_, err := e.Analyze(context.Background(), g, profile, AnalyzeOptions{Seed: 11, AsOf: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	statsAfterFirst := e.cache.Stats()

	_, err = e.Analyze(context.Background(), g, profile, AnalyzeOptions{Seed: 11, AsOf: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	statsAfterSecond := e.cache.Stats()

	assert.Greater(t, statsAfterSecond.Hits, statsAfterFirst.Hits)
}

func TestAnalyze_BusyRejectedWhenConcurrencyCapExhausted(t *testing.T) {
	cfg := &config.Config{SimDefaultTrials: 200, SimMinTrials: 50, CacheMaxEntries: 10, AnalysisConcurrencyLimit: 1}
	prov, err := assumptions.New("")
	require.NoError(t, err)
	c := cache.New(cache.Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	e := New(cfg, prov, c, logging.Nop())

	release, err := e.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = e.acquire(context.Background())
	assert.ErrorIs(t, err, models.ErrBusyRejected)
}

func TestCompare_PricesEveryGoalIndependently(t *testing.T) {
	e := testEngine(t)
	g1 := retirementGoal()
	g2 := retirementGoal()
	g2.ID = "goal-2"
	g2.TargetAmount = 2_000_000

	comparison := e.Compare(context.Background(), []models.Goal{g1, g2}, models.Profile{Age: 40, MonthlyExpenses: 3000}, AnalyzeOptions{Seed: 9})
	require.Len(t, comparison.Entries, 2)
	for _, entry := range comparison.Entries {
		assert.NoError(t, entry.Err)
	}

	best, ok := comparison.BestByProbability()
	require.True(t, ok)
	assert.Equal(t, "goal-1", best.Goal.ID) // the smaller target is easier to fund
}

func TestCompare_IsolatesPerGoalFailures(t *testing.T) {
	e := testEngine(t)
	g1 := retirementGoal()
	invalid := retirementGoal()
	invalid.TargetAmount = -5

	comparison := e.Compare(context.Background(), []models.Goal{g1, invalid}, models.Profile{Age: 40, MonthlyExpenses: 3000}, AnalyzeOptions{})
	require.Len(t, comparison.Entries, 2)
	assert.NoError(t, comparison.Entries[0].Err)
	assert.Error(t, comparison.Entries[1].Err)
}

func TestRecommend_ReturnsRankedListCappedAtTopK(t *testing.T) {
	e := testEngine(t)
	g := retirementGoal()
	g.Flexibility = models.FlexibilityVeryFlexible

	recs, err := e.Recommend(context.Background(), g, models.Profile{Age: 40, MonthlyExpenses: 3000, MonthlyIncome: 6000}, RecommendOptions{AnalyzeOptions: AnalyzeOptions{Seed: 3}, TopK: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(recs), 3)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Impact.ProbabilityIncrease, recs[i].Impact.ProbabilityIncrease)
	}
}
