// Package api exposes the engine over HTTP: decode request -> validate ->
// call core -> respond, routed with github.com/go-chi/chi/v5.
package api

import (
	"time"

	"github.com/wealthpath/goalengine/internal/engine"
	"github.com/wealthpath/goalengine/internal/models"
)

// GoalRequest is the wire shape of a Goal; TargetDate is accepted as an
// RFC3339 string since time.Time has no natural JSON input format of its
// own.
type GoalRequest struct {
	ID                  string                     `json:"id"`
	Category            string                     `json:"category"`
	TargetAmount        float64                    `json:"target_amount"`
	CurrentAmount       float64                    `json:"current_amount"`
	MonthlyContribution float64                    `json:"monthly_contribution"`
	TargetDate          string                     `json:"target_date"`
	Importance          string                     `json:"importance"`
	Flexibility         string                     `json:"flexibility"`
	Allocation          map[string]float64         `json:"allocation"`
}

// ProfileRequest is the wire shape of a Profile.
type ProfileRequest struct {
	Age             int     `json:"age"`
	AnnualIncome    float64 `json:"annual_income"`
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	Dependents      int     `json:"dependents"`
	RiskTolerance   string  `json:"risk_tolerance"`
	CountryCode     string  `json:"country_code"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Goal             GoalRequest    `json:"goal"`
	Profile          ProfileRequest `json:"profile"`
	TrialCount       int            `json:"trial_count"`
	Seed             int64          `json:"seed"`
	ForceRecalculate bool           `json:"force_recalculate"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	AnalyzeRequest
	TopK     int     `json:"max_recommendations"`
	MinDelta float64 `json:"min_delta"`
}

func (r GoalRequest) toGoal() (models.Goal, error) {
	var targetDate time.Time
	if r.TargetDate != "" {
		parsed, err := time.Parse(time.RFC3339, r.TargetDate)
		if err != nil {
			return models.Goal{}, err
		}
		targetDate = parsed
	}

	alloc := make(map[models.AssetClass]float64, len(r.Allocation))
	for class, weight := range r.Allocation {
		alloc[models.AssetClass(class)] = weight
	}

	return models.Goal{
		ID:                  r.ID,
		Category:            models.Category(r.Category),
		TargetAmount:        r.TargetAmount,
		CurrentAmount:       r.CurrentAmount,
		MonthlyContribution: r.MonthlyContribution,
		TargetDate:          targetDate,
		Importance:          models.Importance(r.Importance),
		Flexibility:         models.Flexibility(r.Flexibility),
		Allocation:          alloc,
	}, nil
}

func (r ProfileRequest) toProfile() models.Profile {
	return models.Profile{
		Age:             r.Age,
		AnnualIncome:    r.AnnualIncome,
		MonthlyIncome:   r.MonthlyIncome,
		MonthlyExpenses: r.MonthlyExpenses,
		Dependents:      r.Dependents,
		RiskTolerance:   models.RiskTolerance(r.RiskTolerance),
		CountryCode:     r.CountryCode,
	}
}

func (r AnalyzeRequest) toAnalyzeOptions() engine.AnalyzeOptions {
	return engine.AnalyzeOptions{TrialCount: r.TrialCount, Seed: r.Seed, ForceRecalculate: r.ForceRecalculate}
}

// ConfigureCacheRequest is the body of POST /cache/configure; zero-valued
// fields leave the corresponding setting unchanged.
type ConfigureCacheRequest struct {
	MaxEntries int `json:"max_entries"`
	TTLSeconds int `json:"ttl_seconds"`
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	Goals            []GoalRequest  `json:"goals"`
	Profile          ProfileRequest `json:"profile"`
	TrialCount       int            `json:"trial_count"`
	Seed             int64          `json:"seed"`
	ForceRecalculate bool           `json:"force_recalculate"`
}

func (r CompareRequest) toAnalyzeOptionsForCompare() engine.AnalyzeOptions {
	return engine.AnalyzeOptions{TrialCount: r.TrialCount, Seed: r.Seed, ForceRecalculate: r.ForceRecalculate}
}

// scenarioEntryResponse is the wire shape of one engine.ScenarioEntry; Err
// is flattened to a string so a failed entry still serializes cleanly.
type scenarioEntryResponse struct {
	GoalID string                    `json:"goal_id"`
	Result *models.ProbabilityResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func comparisonResponse(c engine.ScenarioComparison) map[string]interface{} {
	entries := make([]scenarioEntryResponse, len(c.Entries))
	for i, e := range c.Entries {
		entry := scenarioEntryResponse{GoalID: e.Goal.ID}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		} else {
			result := e.Result
			entry.Result = &result
		}
		entries[i] = entry
	}
	return map[string]interface{}{"comparisons": entries}
}
