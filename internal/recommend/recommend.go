package recommend

import (
	"context"
	"sort"

	"github.com/wealthpath/goalengine/internal/models"
)

// Repricer reprices a hypothetical goal, the same signature engine.Analyze
// exposes. Kept as a function type here so this package never imports
// internal/engine (the dependency runs the other way: engine imports
// recommend, not vice versa).
type Repricer func(ctx context.Context, goal models.Goal, profile models.Profile) (models.ProbabilityResult, error)

// Options tunes one Generate call; zero values fall back to the package
// defaults (TopK recommendations, Epsilon improvement threshold).
type Options struct {
	TopK     int
	MinDelta float64
}

// Generate builds the mutation catalogue, reprices every candidate, ranks
// the survivors, and returns the top K. Candidates whose repricing fails are
// skipped rather than aborting the whole recommendation, the same
// degrade-not-fail posture as the goal-specific metrics in
// internal/aggregate.
//
// Call flow:
//
//	INIT -> BASELINE -> CANDIDATES -> REPRICE (per candidate) -> RANK -> DONE
func Generate(ctx context.Context, goal models.Goal, profile models.Profile, baseline models.ProbabilityResult, reprice Repricer, opts Options) ([]models.Recommendation, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = TopK
	}
	minDelta := opts.MinDelta
	if minDelta <= 0 {
		minDelta = Epsilon
	}
	baselineP := baseline.SuccessMetrics.SuccessProbability

	var recs []models.Recommendation
	for _, c := range Candidates(goal, profile) {
		select {
		case <-ctx.Done():
			return recs, ctx.Err()
		default:
		}

		mutated := c.Mutate(goal)
		priced, err := reprice(ctx, mutated, profile)
		if err != nil {
			continue
		}

		increase := priced.SuccessMetrics.SuccessProbability - baselineP
		if increase <= minDelta {
			continue
		}

		recs = append(recs, models.Recommendation{
			Type:                     c.Type,
			Value:                    c.Value,
			Description:              c.Description,
			ImplementationDifficulty: c.ImplementationDifficulty,
			BudgetImpact:             c.BudgetImpact,
			Impact: models.RecommendationImpact{
				ProbabilityIncrease: increase,
				NewProbability:      models.ClipNewProbability(baselineP, increase),
			},
		})
	}

	Rank(recs)
	if len(recs) > topK {
		recs = recs[:topK]
	}
	return recs, nil
}

var difficultyRank = map[models.ImplementationDifficulty]int{
	models.DifficultyEasy:     0,
	models.DifficultyModerate: 1,
	models.DifficultyHard:     2,
}

// Rank sorts recommendations in place: largest probability_increase first,
// ties broken by lower implementation difficulty, further ties broken by
// smaller absolute budget_impact.
func Rank(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Impact.ProbabilityIncrease != b.Impact.ProbabilityIncrease {
			return a.Impact.ProbabilityIncrease > b.Impact.ProbabilityIncrease
		}
		da, db := difficultyRank[a.ImplementationDifficulty], difficultyRank[b.ImplementationDifficulty]
		if da != db {
			return da < db
		}
		return absFloat(a.BudgetImpact) < absFloat(b.BudgetImpact)
	})
}
