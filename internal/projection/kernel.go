// Package projection implements the stochastic projection kernel: given a
// seed, one terminal portfolio value (and optionally its yearly trajectory).
// Per-asset annual log-returns are drawn from a seeded
// gonum.org/v1/gonum/stat/distuv.Normal, so a trial is fully reproducible
// from its rand.Source.
package projection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wealthpath/goalengine/internal/models"
)

// grossReturnFloor/Ceiling bound a single asset's annual gross return to a
// wide sanity band so a pathological draw can never make the arithmetic
// non-finite.
const (
	grossReturnFloor   = 0.01
	grossReturnCeiling = 10.0
)

// RunTrial executes one Monte Carlo trial of the scalar projection
// algorithm, seeded by src so the same src always yields the same result.
// withTrajectory requests the full per-year value sequence in addition to
// the terminal value.
func RunTrial(inputs models.SimulationInputs, src rand.Source, withTrajectory bool) models.TrialOutcome {
	if inputs.Years == 0 {
		out := models.TrialOutcome{Terminal: inputs.InitialAmount}
		if withTrajectory {
			out.Trajectory = []float64{inputs.InitialAmount}
		}
		return out
	}

	// One Normal draw generator per asset class, all sharing the trial's
	// rand.Source so the whole trial is reproducible from a single seed.
	draws := make(map[models.AssetClass]*distuv.Normal, len(inputs.Assumptions))
	for class, a := range inputs.Assumptions {
		mu := a.ExpectedReturn - 0.5*a.Volatility*a.Volatility
		draws[class] = &distuv.Normal{Mu: mu, Sigma: a.Volatility, Src: gonumSource{src}}
	}

	v := inputs.InitialAmount
	var trajectory []float64
	if withTrajectory {
		trajectory = make([]float64, 0, inputs.Years)
	}

	shockDraw := rand.New(src)

	for year := 0; year < inputs.Years; year++ {
		weights := inputs.AllocationSchedule[year]
		contribution := inputs.ContributionSchedule[year]

		// Draw in AllAssetClasses' fixed order, not weights' map-iteration
		// order (Go randomizes that per range), so the shared src is
		// consumed identically across runs given the same seed.
		var grossReturn float64
		for _, class := range models.AllAssetClasses {
			weight := weights[class]
			if weight == 0 {
				continue
			}
			a := inputs.Assumptions[class]
			g := sampleGrossReturn(draws[class], a)
			grossReturn += weight * g
		}

		if inputs.Shock != nil && inputs.Shock.AnnualProbability > 0 && shockDraw.Float64() < inputs.Shock.AnnualProbability {
			grossReturn *= 1 - inputs.Shock.Severity
		}

		v = v*grossReturn + contribution

		if !isFinite(v) {
			return models.TrialOutcome{Terminal: inputs.InitialAmount, Degenerate: true}
		}

		if withTrajectory {
			trajectory = append(trajectory, v)
		}
	}

	return models.TrialOutcome{Terminal: v, Trajectory: trajectory}
}

// sampleGrossReturn draws one asset's gross return for a year, handling the
// σ=0 deterministic tie-break and clipping to the sanity band.
func sampleGrossReturn(n *distuv.Normal, a models.AssetAssumption) float64 {
	var g float64
	if a.Volatility == 0 {
		g = math.Exp(a.ExpectedReturn)
	} else {
		r := n.Rand()
		g = math.Exp(r)
	}
	if g < grossReturnFloor {
		g = grossReturnFloor
	}
	if g > grossReturnCeiling {
		g = grossReturnCeiling
	}
	return g
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// gonumSource adapts a math/rand.Source to the golang.org/x/exp/rand.Source
// interface that gonum's distuv.Normal requires, so the trial's single
// math/rand.Source can keep driving the gonum draws.
type gonumSource struct {
	rand.Source
}

// Uint64 combines two 63-bit draws into a full 64-bit value, so the top bit
// (which the normal sampler reads as the sign) is random too.
func (s gonumSource) Uint64() uint64 {
	return uint64(s.Source.Int63())>>31 | uint64(s.Source.Int63())<<32
}

func (s gonumSource) Seed(seed uint64) {
	s.Source.Seed(int64(seed))
}
