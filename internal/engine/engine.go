// Package engine wires the goal-pricing pipeline into its caller-facing
// operations: Analyze, Recommend, and Compare. It resolves simulation
// inputs, checks the result cache, runs the Monte Carlo driver on a miss,
// and aggregates trial outcomes into a ProbabilityResult.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wealthpath/goalengine/internal/aggregate"
	"github.com/wealthpath/goalengine/internal/assumptions"
	"github.com/wealthpath/goalengine/internal/cache"
	"github.com/wealthpath/goalengine/internal/config"
	"github.com/wealthpath/goalengine/internal/contribution"
	"github.com/wealthpath/goalengine/internal/models"
	"github.com/wealthpath/goalengine/internal/recommend"
	"github.com/wealthpath/goalengine/internal/simulate"
)

// Engine holds the constructed collaborators and exposes Analyze and
// Recommend. It is safe for concurrent use by multiple callers — every
// collaborator it holds already is.
type Engine struct {
	cfg    *config.Config
	assume *assumptions.Provider
	driver *simulate.Driver
	cache  *cache.Cache
	log    zerolog.Logger
	sem    chan struct{} // nil means unbounded concurrent analyses
}

// New builds an Engine from its already-constructed collaborators. Callers
// typically build cfg/assume/cache once at process start (cmd/server does
// this) and share one Engine across requests.
func New(cfg *config.Config, assume *assumptions.Provider, c *cache.Cache, log zerolog.Logger) *Engine {
	e := &Engine{cfg: cfg, assume: assume, driver: simulate.New(log), cache: c, log: log}
	if cfg.AnalysisConcurrencyLimit > 0 {
		e.sem = make(chan struct{}, cfg.AnalysisConcurrencyLimit)
	}
	return e
}

// AnalyzeOptions configures one Analyze call; every field has a documented
// zero-value fallback, so an empty AnalyzeOptions{} is always valid. A
// deadline is expressed via the caller's context.Context rather than a
// separate field.
type AnalyzeOptions struct {
	// TrialCount overrides cfg.SimDefaultTrials; 0 means use the default.
	TrialCount int
	// Seed overrides cfg.SimDefaultSeed; 0 means use the configured default.
	Seed int64
	// AsOf pins "now" for horizon/already-achieved calculations; the zero
	// value means time.Now().
	AsOf time.Time
	// ForceRecalculate bypasses a cache hit and recomputes trials even when
	// an entry for this key already exists, then overwrites it.
	ForceRecalculate bool
}

func (o AnalyzeOptions) resolveAsOf() time.Time {
	if o.AsOf.IsZero() {
		return time.Now()
	}
	return o.AsOf
}

// acquire reserves a concurrency slot, returning BusyRejected immediately
// (never blocking) if the configured ceiling is already saturated. This is
// the engine's optional back-pressure mechanism.
func (e *Engine) acquire(_ context.Context) (release func(), err error) {
	if e.sem == nil {
		return func() {}, nil
	}
	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, nil
	default:
		return nil, models.ErrBusyRejected
	}
}

// Analyze prices goal for profile: it builds a SimulationInputs from the
// goal's contribution/allocation schedule and the configured return
// assumptions, consults the cache, runs the Monte Carlo kernel on a miss,
// and aggregates the result.
func (e *Engine) Analyze(ctx context.Context, goal models.Goal, profile models.Profile, opts AnalyzeOptions) (models.ProbabilityResult, error) {
	correlationID := uuid.New().String()
	log := e.log.With().Str("correlation_id", correlationID).Str("goal_id", goal.ID).Logger()

	asOf := opts.resolveAsOf()
	if err := goal.Validate(asOf); err != nil {
		return models.ProbabilityResult{}, err
	}

	if goal.AlreadyAchieved() {
		log.Debug().Msg("goal already achieved, skipping simulation")
		return alreadyAchievedResult(), nil
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return models.ProbabilityResult{}, err
	}
	defer release()

	inputs, horizonYears, err := e.buildInputs(goal, opts, asOf)
	if err != nil {
		return models.ProbabilityResult{}, err
	}
	if err := inputs.Validate(e.cfg.SimMinTrials, e.cfg.SimMaxTrials); err != nil {
		return models.ProbabilityResult{}, err
	}

	key := cache.CanonicalKey(inputs)
	var trials models.TrialArray
	cached, hit := e.cache.Get(key)
	if hit && !opts.ForceRecalculate {
		log.Debug().Str("cache_key", string(key)).Msg("cache hit")
		trials = cached
	} else {
		trials, err = e.driver.Simulate(ctx, inputs, simulate.Options{IncludeTrajectories: true})
		if err != nil {
			return models.ProbabilityResult{}, err
		}
		e.cache.Put(key, trials)
	}

	inflation := e.assume.InflationFor(goal.Category)
	result := aggregate.Aggregate(trials, goal, profile, horizonYears, inflation)

	if trials.DegenerateTrialCount > 0 {
		rate := float64(trials.DegenerateTrialCount) / float64(len(trials.Outcomes))
		if rate > degenerateRateThreshold {
			return result, fmt.Errorf("%w: %.1f%% of trials degenerate", models.ErrDegenerateTrialRate, rate*100)
		}
	}

	return result, nil
}

// degenerateRateThreshold is the fraction of degenerate trials above which
// Analyze reports ErrDegenerateTrialRate instead of silently returning a
// result computed from a shrunken sample.
const degenerateRateThreshold = 0.01

// RecommendOptions configures Recommend. TopK caps how many recommendations
// come back (0 means the recommender's default) and MinDelta overrides the
// minimum probability improvement a candidate must clear to be listed.
type RecommendOptions struct {
	AnalyzeOptions
	TopK     int
	MinDelta float64
}

// Recommend analyzes goal at its current parameters, then generates and
// reprices mutation candidates via internal/recommend, returning the ranked
// top K.
func (e *Engine) Recommend(ctx context.Context, goal models.Goal, profile models.Profile, opts RecommendOptions) ([]models.Recommendation, error) {
	baseline, err := e.Analyze(ctx, goal, profile, opts.AnalyzeOptions)
	if err != nil {
		return nil, err
	}

	reprice := func(ctx context.Context, mutated models.Goal, profile models.Profile) (models.ProbabilityResult, error) {
		return e.Analyze(ctx, mutated, profile, opts.AnalyzeOptions)
	}

	return recommend.Generate(ctx, goal, profile, baseline, reprice, recommend.Options{TopK: opts.TopK, MinDelta: opts.MinDelta})
}

// ScenarioEntry is one goal's priced result within a Compare call, or the
// error that priced it instead.
type ScenarioEntry struct {
	Goal   models.Goal
	Result models.ProbabilityResult
	Err    error
}

// ScenarioComparison is the result of analyzing several goals side by side.
// Unlike Analyze, a single goal's failure doesn't abort the whole
// comparison — its entry simply carries the error, so a caller comparing
// five goals still gets the other four.
type ScenarioComparison struct {
	Entries []ScenarioEntry
}

// BestByProbability returns the entry with the highest success probability
// among those that priced successfully, or false if none did.
func (c ScenarioComparison) BestByProbability() (ScenarioEntry, bool) {
	var best ScenarioEntry
	found := false
	for _, e := range c.Entries {
		if e.Err != nil {
			continue
		}
		if !found || e.Result.SuccessMetrics.SuccessProbability > best.Result.SuccessMetrics.SuccessProbability {
			best = e
			found = true
		}
	}
	return best, found
}

// Compare analyzes each goal independently under the same profile and
// returns every result (or per-goal error) together, so a caller can weigh
// several goals' funding odds at once.
func (e *Engine) Compare(ctx context.Context, goals []models.Goal, profile models.Profile, opts AnalyzeOptions) ScenarioComparison {
	entries := make([]ScenarioEntry, len(goals))
	for i, g := range goals {
		result, err := e.Analyze(ctx, g, profile, opts)
		entries[i] = ScenarioEntry{Goal: g, Result: result, Err: err}
	}
	return ScenarioComparison{Entries: entries}
}

// buildInputs resolves a Goal/Profile pair into the SimulationInputs the
// kernel runs against: horizon (with category-specific override applied),
// contribution schedule, allocation schedule, and the resolved asset-class
// return/volatility assumptions.
func (e *Engine) buildInputs(goal models.Goal, opts AnalyzeOptions, asOf time.Time) (models.SimulationInputs, int, error) {
	years := goal.HorizonYears(asOf)
	if override, ok := e.assume.HorizonOverrideFor(goal.Category); ok {
		years = override
	}

	schedule, err := contribution.BuildSchedule(contribution.ScheduleParams{
		Pattern:       contribution.PatternConstant,
		MonthlyAmount: goal.MonthlyContribution,
	}, years)
	if err != nil {
		return models.SimulationInputs{}, 0, err
	}

	allocSchedule, err := contribution.BuildAllocationSchedule(goal.Allocation, contribution.PolicyForCategory(goal.Category), years)
	if err != nil {
		return models.SimulationInputs{}, 0, err
	}

	trialCount := opts.TrialCount
	if trialCount <= 0 {
		trialCount = e.cfg.SimDefaultTrials
	}
	seed := opts.Seed
	if seed == 0 {
		seed = e.cfg.SimDefaultSeed
	}

	return models.SimulationInputs{
		InitialAmount:        goal.CurrentAmount,
		ContributionSchedule: schedule,
		Years:                years,
		AllocationSchedule:   allocSchedule,
		Assumptions:          e.assume.All(),
		TrialCount:           trialCount,
		RootSeed:             seed,
	}, years, nil
}

// alreadyAchievedResult is the fixed result Analyze returns for a goal whose
// current amount already meets its target.
func alreadyAchievedResult() models.ProbabilityResult {
	return models.ProbabilityResult{
		SuccessMetrics: models.SuccessMetrics{
			SuccessProbability: 1,
			RawProbability:     1,
			ConfidenceLow:      1,
			ConfidenceHigh:     1,
			ConvergenceRate:    1,
		},
		TimeMetrics: models.TimeMetrics{MedianYearsToTarget: 0, Reached: true},
	}
}
