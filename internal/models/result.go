package models

// ProbabilityResult is the engine's output, composed of five semantic
// sub-structs. Every field is named and typed: access is always
// result.SuccessMetrics.SuccessProbability, never a dynamic map lookup.
// GetSafeSuccessProbability is the one exception kept for serialization-
// compat callers that historically reached for a "safe getter".
type ProbabilityResult struct {
	SuccessMetrics      SuccessMetrics     `json:"success_metrics"`
	TimeMetrics         TimeMetrics        `json:"time_metrics"`
	DistributionData    DistributionData   `json:"distribution_data"`
	RiskMetrics         RiskMetrics        `json:"risk_metrics"`
	GoalSpecificMetrics map[string]float64 `json:"goal_specific_metrics,omitempty"`
	GoalSpecificNotes   map[string]string  `json:"goal_specific_notes,omitempty"`
}

// SuccessMetrics holds the calibrated probability and its sampling
// uncertainty.
type SuccessMetrics struct {
	SuccessProbability float64 `json:"success_probability"` // ramp-calibrated, canonical
	RawProbability     float64 `json:"raw_probability"`     // binary fraction ≥ target
	ConfidenceLow      float64 `json:"confidence_low"`
	ConfidenceHigh     float64 `json:"confidence_high"`
	TrialCount         int     `json:"trial_count"`
	ConvergenceRate    float64 `json:"convergence_rate"` // fraction of non-degenerate trials
}

// TimeMetrics describes when, not just whether, the goal is likely met.
type TimeMetrics struct {
	MedianYearsToTarget float64         `json:"median_years_to_target"` // -1 if not reached by ≥50% of trials
	Reached             bool            `json:"reached"`
	ProbabilityOverTime map[int]float64 `json:"probability_over_time,omitempty"`
}

// DistributionData summarizes the terminal-value distribution.
type DistributionData struct {
	P10       float64   `json:"p10"`
	P25       float64   `json:"p25"`
	P50       float64   `json:"p50"`
	P75       float64   `json:"p75"`
	P90       float64   `json:"p90"`
	Mean      float64   `json:"mean"`
	Std       float64   `json:"std"`
	Histogram Histogram `json:"histogram"`
}

// Histogram is a fixed bin-edges/counts pair.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// RiskMetrics quantifies the downside and upside tails.
type RiskMetrics struct {
	ShortfallRisk     float64 `json:"shortfall_risk"`     // P(terminal < 0.8·target)
	DownsideMagnitude float64 `json:"downside_magnitude"` // mean (target-terminal)/target over failures
	UpsidePotential   float64 `json:"upside_potential"`   // P(terminal ≥ 1.2·target)
}

// GetSafeSuccessProbability coerces a possibly-unset or out-of-range
// probability to a value guaranteed to lie in [0,1]. Kept for legacy access
// paths; new code should read SuccessMetrics.SuccessProbability directly.
func (r ProbabilityResult) GetSafeSuccessProbability() float64 {
	p := r.SuccessMetrics.SuccessProbability
	if p != p { // NaN
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// SafeFloor is derived from the already-computed percentile data: the
// 10th-percentile terminal value, presented as a "worst commonly-seen
// outcome" without any extra simulation cost.
func (r ProbabilityResult) SafeFloor() float64 {
	return r.DistributionData.P10
}
