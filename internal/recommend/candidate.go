// Package recommend generates candidate single-parameter mutations of a
// Goal, reprices each through the caller-supplied repricer (engine.Analyze,
// in practice), and ranks the surviving candidates by marginal probability
// gain. The search is heuristic and bounded: listed recommendations are
// improving and applicable, with no optimality claim.
package recommend

import (
	"fmt"

	"github.com/wealthpath/goalengine/internal/models"
)

// Epsilon is the minimum probability_increase a candidate must clear to
// survive ranking; this discards candidates below a small improvement
// threshold.
const Epsilon = 0.005

// TopK is the default number of recommendations returned.
const TopK = 5

// contributionMultipliers are the monthly-contribution scale factors every
// goal is evaluated against.
var contributionMultipliers = []float64{1.1, 1.2, 1.3, 1.5}

// timeframeExtensionYears are candidate horizon extensions, gated on a goal
// whose Flexibility is not Fixed.
var timeframeExtensionYears = []int{1, 2, 3, 5}

// targetReductionPcts are candidate target cuts, gated on Flexibility ==
// VeryFlexible (cutting the target is the most invasive lever).
var targetReductionPcts = []float64{0.05, 0.10, 0.20}

// allocationShiftPcts are candidate weight shifts between adjacent risk
// tiers (cash↔debt↔equity), in both directions. Equity-bound shifts are
// additionally bounded by an age-based equity ceiling.
var allocationShiftPcts = []float64{0.10, 0.20}

// lumpsumMonthsOfIncome are candidate one-time injections, expressed as a
// multiple of the profile's monthly income.
var lumpsumMonthsOfIncome = []float64{1, 3, 6}

// taxAdvantagedMonthlyTopUp is the extra monthly contribution a
// tax-advantaged-subscription candidate routes through a retirement goal,
// on top of whatever the goal already contributes.
const taxAdvantagedMonthlyTopUp float64 = 5000

// Candidate is one priced-or-unpriced mutation template: Mutate produces the
// hypothetical goal; everything else is display/ranking metadata filled in
// up front so Generate doesn't need to re-derive it.
type Candidate struct {
	Type                     models.RecommendationType
	Value                    float64
	Description              string
	ImplementationDifficulty models.ImplementationDifficulty
	BudgetImpact             float64
	Mutate                   func(models.Goal) models.Goal
}

// equityCeilingForAge bounds how much equity allocation-shift candidates may
// push toward equity: younger profiles tolerate a higher equity ceiling than
// those near retirement.
func equityCeilingForAge(age int) float64 {
	switch {
	case age <= 0:
		return 0.90
	case age < 40:
		return 0.90
	case age < 55:
		return 0.75
	default:
		return 0.60
	}
}

// Candidates builds the full mutation-template catalogue for goal/profile,
// gating timeframe/target/allocation/lumpsum templates on flexibility,
// profile completeness, and current allocation.
func Candidates(goal models.Goal, profile models.Profile) []Candidate {
	var out []Candidate

	for _, m := range contributionMultipliers {
		m := m
		increase := goal.MonthlyContribution * (m - 1)
		out = append(out, Candidate{
			Type:                     models.RecContributionIncrease,
			Value:                    m,
			Description:              fmt.Sprintf("increase monthly contribution by %.0f%%", (m-1)*100),
			ImplementationDifficulty: contributionDifficulty(m),
			BudgetImpact:             increase,
			Mutate: func(g models.Goal) models.Goal {
				g.MonthlyContribution *= m
				return g
			},
		})
	}

	if goal.Flexibility != models.FlexibilityFixed {
		for _, years := range timeframeExtensionYears {
			years := years
			out = append(out, Candidate{
				Type:                     models.RecTimeframeExtension,
				Value:                    float64(years),
				Description:              fmt.Sprintf("extend target date by %d year(s)", years),
				ImplementationDifficulty: models.DifficultyEasy,
				BudgetImpact:             0,
				Mutate: func(g models.Goal) models.Goal {
					g.TargetDate = g.TargetDate.AddDate(years, 0, 0)
					return g
				},
			})
		}
	}

	if goal.Flexibility == models.FlexibilityVeryFlexible {
		for _, pct := range targetReductionPcts {
			pct := pct
			out = append(out, Candidate{
				Type:                     models.RecTargetReduction,
				Value:                    pct,
				Description:              fmt.Sprintf("reduce target amount by %.0f%%", pct*100),
				ImplementationDifficulty: models.DifficultyHard,
				BudgetImpact:             -goal.TargetAmount * pct,
				Mutate: func(g models.Goal) models.Goal {
					g.TargetAmount *= 1 - pct
					return g
				},
			})
		}
	}

	if equity, ok := goal.Allocation[models.AssetEquity]; ok {
		ceiling := equityCeilingForAge(profile.Age)
		debt := goal.Allocation[models.AssetDebt]
		for _, pct := range allocationShiftPcts {
			pct := pct
			if equity+pct <= ceiling && debt-pct >= 0 {
				out = append(out, allocationShiftCandidate(goal, pct, models.AssetDebt, models.AssetEquity))
			}
			if equity-pct >= 0 && debt+pct <= 1 {
				out = append(out, allocationShiftCandidate(goal, pct, models.AssetEquity, models.AssetDebt))
			}
		}
	}

	// The cash↔debt tier has no age ceiling; only the [0,1] per-class
	// bounds apply. This keeps cash-heavy goals (emergency funds, short
	// horizons) from being locked out of allocation-shift recommendations
	// just because they hold no equity.
	if cash, ok := goal.Allocation[models.AssetCash]; ok {
		debt := goal.Allocation[models.AssetDebt]
		for _, pct := range allocationShiftPcts {
			pct := pct
			if cash-pct >= 0 && debt+pct <= 1 {
				out = append(out, allocationShiftCandidate(goal, pct, models.AssetCash, models.AssetDebt))
			}
			if debt-pct >= 0 && cash+pct <= 1 {
				out = append(out, allocationShiftCandidate(goal, pct, models.AssetDebt, models.AssetCash))
			}
		}
	}

	if profile.MonthlyIncome > 0 {
		for _, months := range lumpsumMonthsOfIncome {
			months := months
			amount := profile.MonthlyIncome * months
			out = append(out, Candidate{
				Type:                     models.RecLumpsumInjection,
				Value:                    amount,
				Description:              fmt.Sprintf("add a one-time lumpsum of %.0f month(s) of income", months),
				ImplementationDifficulty: lumpsumDifficulty(months),
				BudgetImpact:             amount,
				Mutate: func(g models.Goal) models.Goal {
					g.CurrentAmount += amount
					return g
				},
			})
		}
	}

	out = append(out, categoryCandidates(goal)...)

	return out
}

// categoryCandidates adds category-specific templates, currently a
// tax-advantaged subscription for retirement goals.
func categoryCandidates(goal models.Goal) []Candidate {
	if goal.Category != models.CategoryRetirement {
		return nil
	}
	topUp := taxAdvantagedMonthlyTopUp
	return []Candidate{{
		Type:                     models.RecTaxAdvantagedSub,
		Value:                    topUp,
		Description:              fmt.Sprintf("route an additional %.0f/month through a tax-advantaged retirement subscription", topUp),
		ImplementationDifficulty: models.DifficultyModerate,
		BudgetImpact:             topUp,
		Mutate: func(g models.Goal) models.Goal {
			g.MonthlyContribution += topUp
			return g
		},
	}}
}

// allocationShiftCandidate moves pct of the portfolio from one asset class
// into an adjacent one; callers have already checked both classes stay
// within [0,1] after the shift.
func allocationShiftCandidate(goal models.Goal, pct float64, from, to models.AssetClass) Candidate {
	return Candidate{
		Type:                     models.RecAllocationShift,
		Value:                    pct,
		Description:              fmt.Sprintf("shift %.0f%% of the portfolio from %s to %s", pct*100, from, to),
		ImplementationDifficulty: models.DifficultyEasy,
		BudgetImpact:             0,
		Mutate: func(g models.Goal) models.Goal {
			alloc := make(map[models.AssetClass]float64, len(g.Allocation))
			for k, v := range g.Allocation {
				alloc[k] = v
			}
			alloc[from] -= pct
			alloc[to] += pct
			g.Allocation = alloc
			return g
		},
	}
}

// contributionDifficulty: moderate up to a 20% increase, hard above it.
// There is no easy contribution tier.
func contributionDifficulty(multiplier float64) models.ImplementationDifficulty {
	if multiplier <= 1.2 {
		return models.DifficultyModerate
	}
	return models.DifficultyHard
}

// lumpsumDifficulty: moderate up to three months of income, hard above it.
func lumpsumDifficulty(months float64) models.ImplementationDifficulty {
	if months <= 3 {
		return models.DifficultyModerate
	}
	return models.DifficultyHard
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
