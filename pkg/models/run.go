package models

import (
	"time"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/projection"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/core/valuation"
)

// RunRecord is everything one valuation run produced. It is the unit the
// store persists, the API returns and the report package renders.
type RunRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"` // input path or URL, empty for API bodies
	Years     int       `json:"years"`

	Historical  historical.Set            `json:"historical,omitempty"`
	Assumptions *assumption.AssumptionSet `json:"assumptions"`
	Statements  *projection.Statements    `json:"statements"`
	Valuation   valuation.DCFResult       `json:"valuation"`

	Scenarios   []ScenarioValue         `json:"scenarios,omitempty"`
	Sensitivity *scenario.Grid          `json:"sensitivity,omitempty"`
	MonteCarlo  *MonteCarloSummary      `json:"monte_carlo,omitempty"`
	Checks      *validate.LinkageReport `json:"checks,omitempty"`
}

// EnterpriseValue of the base case.
func (r *RunRecord) EnterpriseValue() float64 { return r.Valuation.EnterpriseValue }

// ScenarioValue is the stored form of a scenario result. Statements are
// dropped; only the applied parameters and the value are kept.
type ScenarioValue struct {
	Name            string  `json:"name"`
	GrowthDelta     float64 `json:"growth_delta"`
	MarginDelta     float64 `json:"margin_delta"`
	RevenueGrowth   float64 `json:"revenue_growth"`
	Margin          float64 `json:"margin"`
	EnterpriseValue float64 `json:"enterprise_value"`
}

// NewScenarioValues flattens sweep results in order.
func NewScenarioValues(results []scenario.ScenarioResult) []ScenarioValue {
	out := make([]ScenarioValue, 0, len(results))
	for _, r := range results {
		out = append(out, ScenarioValue{
			Name:            r.Name,
			GrowthDelta:     r.GrowthDelta,
			MarginDelta:     r.MarginDelta,
			RevenueGrowth:   r.Outcome.Assumptions.RevenueGrowth,
			Margin:          r.Outcome.Assumptions.Margin,
			EnterpriseValue: r.EnterpriseValue(),
		})
	}
	return out
}

// MonteCarloSummary keeps the distribution and the raw values of a
// simulation, with the seed needed to reproduce it.
type MonteCarloSummary struct {
	Samples      int                   `json:"samples"`
	Seed         int64                 `json:"seed"`
	GrowthSigma  float64               `json:"growth_sigma"`
	MarginSigma  float64               `json:"margin_sigma"`
	Distribution scenario.Distribution `json:"distribution"`
	Values       []float64             `json:"values,omitempty"`
}

// NewMonteCarloSummary converts a simulation result.
func NewMonteCarloSummary(res *scenario.MonteCarloResult) *MonteCarloSummary {
	if res == nil {
		return nil
	}
	return &MonteCarloSummary{
		Samples:      res.Config.Samples,
		Seed:         res.Seed,
		GrowthSigma:  res.Config.GrowthSigma,
		MarginSigma:  res.Config.MarginSigma,
		Distribution: res.Distribution,
		Values:       res.Values(),
	}
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Source          string    `json:"source,omitempty"`
	Years           int       `json:"years"`
	EnterpriseValue float64   `json:"enterprise_value"`
}

// Summary returns the listing view of r.
func (r *RunRecord) Summary() RunSummary {
	return RunSummary{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		Source:          r.Source,
		Years:           r.Years,
		EnterpriseValue: r.EnterpriseValue(),
	}
}
