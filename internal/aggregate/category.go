package aggregate

import (
	"math"
	"sort"

	"github.com/wealthpath/goalengine/internal/models"
)

// categoryMetrics dispatches to a per-category metric function. Failures
// (missing profile fields) never abort aggregation: the metric is simply
// omitted and a human-readable note explains why.
func categoryMetrics(goal models.Goal, profile models.Profile, finite []float64, horizonYears int, inflationRate float64) (map[string]float64, map[string]string) {
	metrics := map[string]float64{}
	notes := map[string]string{}

	for _, field := range profile.MissingFieldsFor(goal.Category) {
		notes[field] = "profile field unavailable, goal-specific metric skipped"
	}

	switch goal.Category {
	case models.CategoryRetirement:
		if profile.MonthlyExpenses > 0 {
			metrics["replacement_ratio"] = replacementRatio(finite, profile, horizonYears, inflationRate)
		}
	case models.CategoryEducation:
		metrics["inflation_adjusted_need"] = inflationAdjustedNeed(goal.TargetAmount, horizonYears, inflationRate)
	case models.CategoryHomePurchase:
		metrics["down_payment_coverage_pct"] = downPaymentCoverage(finite, goal)
	}

	if len(metrics) == 0 {
		metrics = nil
	}
	if len(notes) == 0 {
		notes = nil
	}
	return metrics, notes
}

// replacementRatio divides the median terminal value by 25 years of
// expenses projected to the target horizon at the resolved inflation rate,
// the standard "4% rule" multiple used to translate a nest egg into a
// sustainable income replacement ratio.
func replacementRatio(finite []float64, profile models.Profile, horizonYears int, inflationRate float64) float64 {
	if len(finite) == 0 || profile.MonthlyExpenses <= 0 {
		return 0
	}
	median := Percentile(sortedCopy(finite), 50)
	annualExpensesAtRetirement := profile.MonthlyExpenses * 12
	if horizonYears > 0 && inflationRate > -1 {
		annualExpensesAtRetirement *= math.Pow(1+inflationRate, float64(horizonYears))
	}
	safeWithdrawalBase := annualExpensesAtRetirement * 25
	if safeWithdrawalBase <= 0 {
		return 0
	}
	return median / safeWithdrawalBase
}

// inflationAdjustedNeed grows the goal's nominal target by education
// inflation over the horizon: the total nominal amount actually needed at
// the target date.
func inflationAdjustedNeed(targetAmount float64, horizonYears int, inflationRate float64) float64 {
	if horizonYears <= 0 || inflationRate <= -1 {
		return targetAmount
	}
	return targetAmount * math.Pow(1+inflationRate, float64(horizonYears))
}

// downPaymentCoverage reports the median terminal value as a fraction of
// the target down payment (0.6 means 60%).
func downPaymentCoverage(finite []float64, goal models.Goal) float64 {
	if len(finite) == 0 || goal.TargetAmount <= 0 {
		return 0
	}
	median := Percentile(sortedCopy(finite), 50)
	return median / goal.TargetAmount
}

func sortedCopy(vs []float64) []float64 {
	out := append([]float64(nil), vs...)
	sort.Float64s(out)
	return out
}
