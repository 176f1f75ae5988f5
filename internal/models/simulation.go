package models

// AssetAssumption is the (expected_return, volatility) pair resolved for an
// asset class.
type AssetAssumption struct {
	ExpectedReturn float64
	Volatility     float64
}

// SimulationInputs is the derived, cache-keyed shape every trial runs
// against. Equality is structural and parameter-normalized; the canonical
// hash lives in internal/cache, not here, so this type stays a plain value
// the kernel and driver can pass around without importing the cache
// package.
type SimulationInputs struct {
	InitialAmount float64
	// ContributionSchedule has exactly Years entries, applied at year-end.
	ContributionSchedule []float64
	Years                int
	// AllocationSchedule has exactly Years entries; each must sum to 1.
	AllocationSchedule []map[AssetClass]float64
	Assumptions        map[AssetClass]AssetAssumption
	TrialCount         int
	RootSeed           int64
	// Shock is an optional, off-by-default fat-tail extension: nil preserves
	// the default lognormal-only trial behavior.
	Shock *ShockConfig
}

// ShockConfig adds an independent per-year chance of an additional
// multiplicative drawdown on top of the normal lognormal draw, for callers
// who want fatter left tails than the baseline distribution produces. It
// never activates unless explicitly supplied.
type ShockConfig struct {
	// AnnualProbability is the chance, each year, that a shock occurs (0-1).
	AnnualProbability float64
	// Severity is the fractional drawdown applied on a shock year: gross
	// return is multiplied by (1 - Severity).
	Severity float64
}

// Validate checks the structural invariants required before a trial is ever
// run.
func (s SimulationInputs) Validate(minTrials, maxTrials int) error {
	if s.Years < 0 {
		return ErrInvalidHorizon
	}
	if len(s.ContributionSchedule) != s.Years {
		return ErrScheduleMismatch
	}
	if len(s.AllocationSchedule) != s.Years {
		return ErrScheduleMismatch
	}
	if s.TrialCount < minTrials {
		return ErrInsufficientTrials
	}
	if maxTrials > 0 && s.TrialCount > maxTrials {
		return ErrTrialCountExceedsLimit
	}
	return nil
}

// TrialOutcome is one trial's result: a terminal value, and optionally the
// full yearly trajectory when the caller requested time-based metrics.
type TrialOutcome struct {
	Terminal   float64
	Trajectory []float64 // nil unless trajectories were requested
	Degenerate bool
}

// TrialArray is the ordered collection of trial outcomes from one simulate
// call, always in trial-index order regardless of worker scheduling.
type TrialArray struct {
	Outcomes             []TrialOutcome
	DegenerateTrialCount int
}

// Terminals extracts the terminal-value slice of every trial, degenerate ones
// included. Degenerate trials already carry a finite placeholder (the kernel
// records the initial amount for them); the aggregator excludes them by
// working from FiniteTerminals instead.
func (t TrialArray) Terminals() []float64 {
	out := make([]float64, len(t.Outcomes))
	for i, o := range t.Outcomes {
		out[i] = o.Terminal
	}
	return out
}

// FiniteTerminals returns only the terminal values from non-degenerate
// trials, the slice the aggregator's statistics should actually run over.
func (t TrialArray) FiniteTerminals() []float64 {
	out := make([]float64, 0, len(t.Outcomes))
	for _, o := range t.Outcomes {
		if !o.Degenerate {
			out = append(out, o.Terminal)
		}
	}
	return out
}
