// Package assumptions resolves expected-return/volatility pairs per asset
// class, category-specific inflation rates, and category-specific horizon
// overrides. Values are loaded once at construction (built-in defaults,
// optionally overridden by a YAML file) and never mutated afterward, so no
// I/O happens on the hot path.
package assumptions

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/wealthpath/goalengine/internal/models"
)

// defaultInflation is the baseline annual inflation rate.
const defaultInflation = 0.06

// defaults is the built-in (expected_return, volatility) table per asset class.
func defaults() map[models.AssetClass]models.AssetAssumption {
	return map[models.AssetClass]models.AssetAssumption{
		models.AssetEquity:     {ExpectedReturn: 0.10, Volatility: 0.18},
		models.AssetDebt:       {ExpectedReturn: 0.06, Volatility: 0.05},
		models.AssetGold:       {ExpectedReturn: 0.07, Volatility: 0.15},
		models.AssetRealEstate: {ExpectedReturn: 0.08, Volatility: 0.12},
		models.AssetCash:       {ExpectedReturn: 0.03, Volatility: 0.01},
	}
}

// Overrides is the optional YAML shape an operator may supply to retune
// assumptions without a code change.
type Overrides struct {
	Returns              map[string]float64 `yaml:"returns"`
	Volatility           map[string]float64 `yaml:"volatility"`
	Inflation            float64            `yaml:"inflation"`
	CategoryInflation    map[string]float64 `yaml:"category_inflation"`
	HorizonOverrideYears map[string]int     `yaml:"horizon_override_years"`
}

// Provider is the in-process, read-only-after-init assumption source.
type Provider struct {
	assumptions          map[models.AssetClass]models.AssetAssumption
	inflation            float64
	categoryInflation    map[models.Category]float64
	horizonOverrideYears map[models.Category]int
}

// New builds a Provider from defaults, optionally merging a YAML overrides
// file. An empty path is valid and simply uses defaults.
func New(overridesPath string) (*Provider, error) {
	p := &Provider{
		assumptions:          defaults(),
		inflation:            defaultInflation,
		categoryInflation:    map[models.Category]float64{},
		horizonOverrideYears: map[models.Category]int{},
	}
	if overridesPath == "" {
		return p, nil
	}
	data, err := os.ReadFile(overridesPath)
	if err != nil {
		return nil, fmt.Errorf("read assumption overrides %q: %w", overridesPath, err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse assumption overrides %q: %w", overridesPath, err)
	}
	p.applyOverrides(o)
	return p, nil
}

func (p *Provider) applyOverrides(o Overrides) {
	for class, ret := range o.Returns {
		ac := models.AssetClass(class)
		a := p.assumptions[ac]
		a.ExpectedReturn = ret
		p.assumptions[ac] = a
	}
	for class, vol := range o.Volatility {
		ac := models.AssetClass(class)
		a := p.assumptions[ac]
		a.Volatility = vol
		p.assumptions[ac] = a
	}
	if o.Inflation > 0 {
		p.inflation = o.Inflation
	}
	for cat, rate := range o.CategoryInflation {
		p.categoryInflation[models.Category(cat)] = rate
	}
	for cat, years := range o.HorizonOverrideYears {
		p.horizonOverrideYears[models.Category(cat)] = years
	}
}

// ReturnsFor resolves (mean, vol) for an asset class. Volatility must be
// finite and non-negative (0 is valid, for cash-equivalents); mean may be
// negative, to support catastrophic-scenario testing.
func (p *Provider) ReturnsFor(class models.AssetClass) (models.AssetAssumption, error) {
	a, ok := p.assumptions[class]
	if !ok {
		return models.AssetAssumption{}, fmt.Errorf("no assumption for asset class %q", class)
	}
	if a.Volatility < 0 {
		return models.AssetAssumption{}, fmt.Errorf("asset class %q has negative volatility %v", class, a.Volatility)
	}
	if math.IsNaN(a.Volatility) || math.IsInf(a.Volatility, 0) {
		return models.AssetAssumption{}, fmt.Errorf("asset class %q has non-finite volatility %v", class, a.Volatility)
	}
	return a, nil
}

// InflationFor resolves the category-specific inflation rate, falling back
// to the global default.
func (p *Provider) InflationFor(category models.Category) float64 {
	if rate, ok := p.categoryInflation[category]; ok {
		return rate
	}
	return p.inflation
}

// HorizonOverrideFor returns a category-specific horizon override in years,
// if one is configured.
func (p *Provider) HorizonOverrideFor(category models.Category) (years int, ok bool) {
	years, ok = p.horizonOverrideYears[category]
	return
}

// All returns every resolved asset-class assumption, used to build a
// SimulationInputs.Assumptions map without re-querying per class.
func (p *Provider) All() map[models.AssetClass]models.AssetAssumption {
	out := make(map[models.AssetClass]models.AssetAssumption, len(p.assumptions))
	for k, v := range p.assumptions {
		out[k] = v
	}
	return out
}
