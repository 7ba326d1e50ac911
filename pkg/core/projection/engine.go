package projection

import (
	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/modelerr"
)

// Line identifiers used as strategy driver keys.
const (
	LineRevenue = "revenue"
	LineCost    = "cost"
	LineDebt    = "debt"
)

// ProjectionEngine articulates the simplified statements year by year.
// Income statement, cash flow and balance sheet stay mutually consistent:
// profit = revenue - cost, cash flow = profit, assets = cumulative cash,
// equity = assets - debt.
type ProjectionEngine struct {
	Revenue ProjectionStrategy
	Cost    ProjectionStrategy
	Debt    ProjectionStrategy
}

// NewProjectionEngine wires the standard strategies for an assumption set.
func NewProjectionEngine(a *assumption.AssumptionSet) *ProjectionEngine {
	return &ProjectionEngine{
		Revenue: &GrowthStrategy{Base: a.StartingRevenue, GrowthRate: a.RevenueGrowth},
		Cost:    &MarginStrategy{Margin: a.Margin, BaseLine: LineRevenue},
		Debt:    &ConstantStrategy{Value: a.Debt},
	}
}

// ProjectYear calculates year t from year t-1. prev is the zero Row for year 1.
func (e *ProjectionEngine) ProjectYear(prev Row, year int) (Row, error) {
	rev, err := e.Revenue.Calculate(Context{Year: year, Prior: prev.Revenue})
	if err != nil {
		return Row{}, modelerr.InvalidAssumptions("project", "revenue: %v", err).With("year", year)
	}

	lines := map[string]float64{LineRevenue: rev}
	cost, err := e.Cost.Calculate(Context{Year: year, Prior: prev.Cost, Lines: lines})
	if err != nil {
		return Row{}, modelerr.InvalidAssumptions("project", "cost: %v", err).With("year", year)
	}
	debt, err := e.Debt.Calculate(Context{Year: year, Prior: prev.Debt, Lines: lines})
	if err != nil {
		return Row{}, modelerr.InvalidAssumptions("project", "debt: %v", err).With("year", year)
	}

	profit := rev - cost
	cf := profit
	cash := prev.CumulativeCash + cf
	assets := cash

	return Row{
		Year:           year,
		Revenue:        rev,
		Cost:           cost,
		Profit:         profit,
		CashFlow:       cf,
		CumulativeCash: cash,
		Assets:         assets,
		Debt:           debt,
		Equity:         assets - debt,
	}, nil
}

// Run projects years rows.
func (e *ProjectionEngine) Run(years int) (*Statements, error) {
	if years < 1 {
		return nil, modelerr.InvalidAssumptions("project", "years must be >= 1").With("years", years)
	}
	st := &Statements{Rows: make([]Row, 0, years)}
	prev := Row{}
	for y := 1; y <= years; y++ {
		row, err := e.ProjectYear(prev, y)
		if err != nil {
			return nil, err
		}
		st.Rows = append(st.Rows, row)
		prev = row
	}
	return st, nil
}

// Project validates the assumption set and projects it over years.
// It reads a and never writes to it.
func Project(a *assumption.AssumptionSet, years int) (*Statements, error) {
	if years < 1 {
		return nil, modelerr.InvalidAssumptions("project", "years must be >= 1").With("years", years)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return NewProjectionEngine(a).Run(years)
}
