// Package aggregate turns a TrialArray into a ProbabilityResult:
// ramp-calibrated success probability, percentiles with linear interpolation
// between order statistics, confidence interval, time-to-target curve, risk
// metrics, and category-specific add-ons.
package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wealthpath/goalengine/internal/models"
)

// RampBandWidth is the width of the partial-credit ramp below target: the
// ramp spans [0.9·T, T), i.e. a 10% band. Kept as a named constant, not
// hardcoded, so a caller can retune it within a documented [1%, 20%] range.
const RampBandWidth = 0.10

// confidenceZ is the z-score for a 95% normal-approximation interval.
const confidenceZ = 1.96

// histogramBins is the fixed bin count for DistributionData.Histogram.
const histogramBins = 20

// Aggregate computes every field of ProbabilityResult from trials and the
// goal's target amount. It never returns an error for the base metrics;
// category-specific metric failures are caught internally and surface as an
// absent field plus a note. horizonYears and inflationRate feed only the
// category-specific metrics (retirement replacement_ratio and education
// inflation_adjusted_need).
func Aggregate(trials models.TrialArray, goal models.Goal, profile models.Profile, horizonYears int, inflationRate float64) models.ProbabilityResult {
	target := goal.TargetAmount
	finite := trials.FiniteTerminals()

	result := models.ProbabilityResult{}
	result.SuccessMetrics = successMetrics(finite, trials, target)
	result.DistributionData = distributionData(finite)
	result.RiskMetrics = riskMetrics(finite, target)
	result.TimeMetrics = timeMetrics(trials, target)
	result.GoalSpecificMetrics, result.GoalSpecificNotes = categoryMetrics(goal, profile, finite, horizonYears, inflationRate)
	return result
}

func successMetrics(finite []float64, trials models.TrialArray, target float64) models.SuccessMetrics {
	n := len(finite)
	if n == 0 {
		return models.SuccessMetrics{TrialCount: len(trials.Outcomes)}
	}

	var rawHits float64
	var calibratedHits float64
	for _, v := range finite {
		if v >= target {
			rawHits++
			calibratedHits++
			continue
		}
		calibratedHits += rampCredit(v, target)
	}

	raw := rawHits / float64(n)
	calibrated := calibratedHits / float64(n)

	lo, hi := confidenceInterval(calibrated, n)

	convergence := 1.0
	if len(trials.Outcomes) > 0 {
		convergence = float64(n) / float64(len(trials.Outcomes))
	}

	return models.SuccessMetrics{
		SuccessProbability: clip01(calibrated),
		RawProbability:     clip01(raw),
		ConfidenceLow:      lo,
		ConfidenceHigh:     hi,
		TrialCount:         len(trials.Outcomes),
		ConvergenceRate:    convergence,
	}
}

// rampCredit is the partial-credit calibration: a linear ramp from 0 at
// 0.9·target to 1 at target, 0 below the band.
func rampCredit(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	bandStart := target * (1 - RampBandWidth)
	if value < bandStart {
		return 0
	}
	if value >= target {
		return 1
	}
	return 1 - (target-value)/(target*RampBandWidth)
}

func confidenceInterval(p float64, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 0
	}
	half := confidenceZ * math.Sqrt(p*(1-p)/float64(n))
	lo = clip01(p - half)
	hi = clip01(p + half)
	return lo, hi
}

func distributionData(finite []float64) models.DistributionData {
	if len(finite) == 0 {
		return models.DistributionData{}
	}
	sorted := append([]float64(nil), finite...)
	sort.Float64s(sorted)

	return models.DistributionData{
		P10:       Percentile(sorted, 10),
		P25:       Percentile(sorted, 25),
		P50:       Percentile(sorted, 50),
		P75:       Percentile(sorted, 75),
		P90:       Percentile(sorted, 90),
		Mean:      stat.Mean(sorted, nil),
		Std:       stat.StdDev(sorted, nil),
		Histogram: histogram(sorted, histogramBins),
	}
}

// Percentile computes the p-th percentile (0-100) of a pre-sorted slice
// using linear interpolation between order statistics.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func histogram(sorted []float64, bins int) models.Histogram {
	if len(sorted) == 0 || bins <= 0 {
		return models.Histogram{}
	}
	min := sorted[0]
	max := sorted[len(sorted)-1]
	if max == min {
		return models.Histogram{Edges: []float64{min, max}, Counts: []int{len(sorted)}}
	}

	edges := make([]float64, bins+1)
	width := (max - min) / float64(bins)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	counts := make([]int, bins)
	for _, v := range sorted {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return models.Histogram{Edges: edges, Counts: counts}
}

func riskMetrics(finite []float64, target float64) models.RiskMetrics {
	if len(finite) == 0 || target <= 0 {
		return models.RiskMetrics{}
	}
	shortfallThreshold := 0.8 * target
	upsideThreshold := 1.2 * target

	var shortfallCount, upsideCount int
	var shortfallSum float64
	var shortfallN int
	for _, v := range finite {
		if v < shortfallThreshold {
			shortfallCount++
		}
		if v < target {
			shortfallSum += (target - v) / target
			shortfallN++
		}
		if v >= upsideThreshold {
			upsideCount++
		}
	}

	downside := 0.0
	if shortfallN > 0 {
		downside = shortfallSum / float64(shortfallN)
	}

	n := float64(len(finite))
	return models.RiskMetrics{
		ShortfallRisk:     float64(shortfallCount) / n,
		DownsideMagnitude: downside,
		UpsidePotential:   float64(upsideCount) / n,
	}
}

func timeMetrics(trials models.TrialArray, target float64) models.TimeMetrics {
	var hitYears []int
	var trajectories [][]float64
	maxYears := 0
	anyTrajectory := false

	for _, o := range trials.Outcomes {
		if o.Degenerate || len(o.Trajectory) == 0 {
			continue
		}
		anyTrajectory = true
		if len(o.Trajectory) > maxYears {
			maxYears = len(o.Trajectory)
		}
		hitYear := -1
		for y, v := range o.Trajectory {
			if v >= target {
				hitYear = y + 1
				break
			}
		}
		hitYears = append(hitYears, hitYear)
		trajectories = append(trajectories, o.Trajectory)
	}

	if !anyTrajectory {
		return models.TimeMetrics{MedianYearsToTarget: -1, Reached: false}
	}

	// probability_over_time applies the same partial-credit ramp used for
	// success_probability, but in value (the running value at year y), not
	// in time: a trial that already hit target by y gets full credit, a
	// trial whose year-y value is a near-miss gets partial credit.
	probOverTime := make(map[int]float64, maxYears)
	for y := 1; y <= maxYears; y++ {
		var credit float64
		for i, hy := range hitYears {
			switch {
			case hy != -1 && hy <= y:
				credit++
			case y-1 < len(trajectories[i]):
				credit += rampCredit(trajectories[i][y-1], target)
			}
		}
		probOverTime[y] = credit / float64(len(hitYears))
	}

	var reachedYears []int
	for _, hy := range hitYears {
		if hy != -1 {
			reachedYears = append(reachedYears, hy)
		}
	}

	reachedFraction := float64(len(reachedYears)) / float64(len(hitYears))
	if reachedFraction < 0.5 {
		return models.TimeMetrics{MedianYearsToTarget: -1, Reached: false, ProbabilityOverTime: probOverTime}
	}

	sort.Ints(reachedYears)
	median := Percentile(intsToFloats(reachedYears), 50)
	return models.TimeMetrics{MedianYearsToTarget: median, Reached: true, ProbabilityOverTime: probOverTime}
}

func intsToFloats(vs []int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

func clip01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
