// Package contribution builds per-year contribution schedules and per-year
// allocation vectors, including glide-path variants that shift toward debt
// as the target date approaches.
package contribution

import "github.com/wealthpath/goalengine/internal/models"

// Pattern is the closed set of contribution-schedule shapes.
type Pattern string

const (
	PatternConstant Pattern = "constant"
	PatternGrowing  Pattern = "growing"
	PatternLumpsum  Pattern = "front_loaded_lumpsum"
	PatternCustom   Pattern = "custom"
)

// ScheduleParams configures BuildSchedule.
type ScheduleParams struct {
	Pattern        Pattern
	MonthlyAmount  float64 // base monthly contribution, annualized internally
	AnnualGrowth   float64 // fixed annual percentage increase; default 0
	LumpsumAmount  float64 // extra one-time contribution at year 0 (PatternLumpsum)
	CustomSchedule []float64 // explicit per-year values (PatternCustom); length must equal years
}

// BuildSchedule produces a per-year contribution sequence of length years,
// one of four variants. Output length always equals years.
func BuildSchedule(p ScheduleParams, years int) ([]float64, error) {
	if years < 0 {
		return nil, models.ErrInvalidHorizon
	}
	switch p.Pattern {
	case PatternCustom:
		if len(p.CustomSchedule) != years {
			return nil, models.ErrScheduleMismatch
		}
		out := make([]float64, years)
		copy(out, p.CustomSchedule)
		return out, nil
	case PatternLumpsum:
		out := buildGrowing(p.MonthlyAmount*12, p.AnnualGrowth, years)
		if years > 0 {
			out[0] += p.LumpsumAmount
		}
		return out, nil
	case PatternGrowing, PatternConstant, "":
		growth := p.AnnualGrowth
		if p.Pattern == PatternConstant {
			growth = 0
		}
		return buildGrowing(p.MonthlyAmount*12, growth, years), nil
	default:
		return nil, models.ErrScheduleMismatch
	}
}

func buildGrowing(annualBase, growth float64, years int) []float64 {
	out := make([]float64, years)
	amount := annualBase
	for y := 0; y < years; y++ {
		out[y] = amount
		amount *= 1 + growth
	}
	return out
}

// GlidePolicy is the category-specific allocation-shift policy: retirement
// glides by target-date proximity, education shortens equity within 3 years
// of target, emergency_fund stays static cash/debt heavy. Other categories
// default to static.
type GlidePolicy string

const (
	GlideNone       GlidePolicy = "none"
	GlideTargetDate GlidePolicy = "target_date"
	GlideEducation  GlidePolicy = "education"
)

// PolicyForCategory selects the glide policy a category uses by default.
func PolicyForCategory(category models.Category) GlidePolicy {
	switch category {
	case models.CategoryRetirement:
		return GlideTargetDate
	case models.CategoryEducation:
		return GlideEducation
	default:
		return GlideNone
	}
}

// BuildAllocationSchedule produces a per-year allocation-vector sequence.
// base is the starting (and, for GlideNone, the only) allocation; every
// output vector is renormalized to sum to 1.
func BuildAllocationSchedule(base map[models.AssetClass]float64, policy GlidePolicy, years int) ([]map[models.AssetClass]float64, error) {
	if years < 0 {
		return nil, models.ErrInvalidHorizon
	}
	out := make([]map[models.AssetClass]float64, years)
	switch policy {
	case GlideTargetDate:
		for y := 0; y < years; y++ {
			progress := 0.0
			if years > 1 {
				progress = float64(y) / float64(years-1)
			}
			out[y] = normalize(glideTowardDebt(base, progress))
		}
	case GlideEducation:
		for y := 0; y < years; y++ {
			yearsToTarget := years - y
			if yearsToTarget <= 3 {
				// shorten equity exposure within the last 3 years: shift
				// proportionally more into debt/cash the closer we are.
				progress := float64(3-yearsToTarget+1) / 3.0
				if progress > 1 {
					progress = 1
				}
				out[y] = normalize(glideTowardDebt(base, progress))
			} else {
				out[y] = normalize(copyAlloc(base))
			}
		}
	default:
		for y := 0; y < years; y++ {
			out[y] = normalize(copyAlloc(base))
		}
	}
	return out, nil
}

func copyAlloc(base map[models.AssetClass]float64) map[models.AssetClass]float64 {
	out := make(map[models.AssetClass]float64, len(base))
	for k, v := range base {
		out[k] = v
	}
	return out
}

// glideTowardDebt shifts weight from equity to debt linearly as progress
// goes from 0 (no shift) to 1 (maximum shift, capped so equity never goes
// negative).
func glideTowardDebt(base map[models.AssetClass]float64, progress float64) map[models.AssetClass]float64 {
	out := copyAlloc(base)
	equity := out[models.AssetEquity]
	shift := equity * progress * 0.6 // glide at most 60% of the equity sleeve away
	out[models.AssetEquity] = equity - shift
	out[models.AssetDebt] = out[models.AssetDebt] + shift
	return out
}

func normalize(alloc map[models.AssetClass]float64) map[models.AssetClass]float64 {
	var sum float64
	for _, w := range alloc {
		sum += w
	}
	if sum <= 0 {
		return alloc
	}
	out := make(map[models.AssetClass]float64, len(alloc))
	for k, w := range alloc {
		out[k] = w / sum
	}
	return out
}
