package scenario

import (
	"context"
	"fmt"
	"math"

	"financial_model/pkg/core/assumption"
)

// Scenario perturbs the base growth and margin by fixed deltas.
type Scenario struct {
	Name        string  `json:"name" yaml:"name"`
	GrowthDelta float64 `json:"growth_delta" yaml:"growth_delta"`
	MarginDelta float64 `json:"margin_delta" yaml:"margin_delta"`
}

// DefaultScenarios returns Base, Upside and Downside.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "Base"},
		{Name: "Upside", GrowthDelta: 0.05, MarginDelta: 0.05},
		{Name: "Downside", GrowthDelta: -0.05, MarginDelta: -0.05},
	}
}

// ApplyTo returns a copy of base with the deltas applied. Perturbed growth
// and margin are each floored at 0; a scenario with no deltas returns base
// unchanged, so it always matches the base case.
func (s Scenario) ApplyTo(base *assumption.AssumptionSet) *assumption.AssumptionSet {
	out := base.Clone()
	if s.GrowthDelta == 0 && s.MarginDelta == 0 {
		return out
	}
	out.RevenueGrowth = math.Max(0, base.RevenueGrowth+s.GrowthDelta)
	out.Margin = math.Max(0, base.Margin+s.MarginDelta)
	if out.Sources == nil {
		out.Sources = make(map[assumption.Key]assumption.Source, 2)
	}
	out.Sources[assumption.KeyRevenueGrowth] = assumption.SourceOverride
	out.Sources[assumption.KeyMargin] = assumption.SourceOverride
	return out
}

// ScenarioResult is one row of a scenario sweep.
type ScenarioResult struct {
	Scenario
	Outcome *Outcome `json:"outcome"`
}

// EnterpriseValue of the scenario.
func (r ScenarioResult) EnterpriseValue() float64 { return r.Outcome.EnterpriseValue() }

// RunScenarios evaluates each scenario against its own copy of base. Results
// are in the order the scenarios were given.
func (p *Pipeline) RunScenarios(ctx context.Context, base *assumption.AssumptionSet, scenarios []Scenario, years int) ([]ScenarioResult, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	results := make([]ScenarioResult, len(scenarios))
	err := p.forEach(ctx, len(scenarios), func(_ context.Context, i int) error {
		sc := scenarios[i]
		out, err := Evaluate(sc.ApplyTo(base), years)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		results[i] = ScenarioResult{Scenario: sc, Outcome: out}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunScenarios runs the sweep on a default Pipeline.
func RunScenarios(ctx context.Context, base *assumption.AssumptionSet, scenarios []Scenario, years int) ([]ScenarioResult, error) {
	return NewPipeline(0).RunScenarios(ctx, base, scenarios, years)
}
