package assumption

import (
	"financial_model/pkg/core/historical"
)

// Fallbacks used when the historical rows cannot supply a value.
const (
	DefaultStartingRevenue = 1_000_000.0
	DefaultRevenueGrowth   = 0.10
	DefaultMargin          = 0.40
	DefaultDebt            = 0.0
	DefaultInterestRate    = 0.05
	DefaultDiscountRate    = 0.10
	DefaultExitMultiple    = 5.0
)

// rule derives one key from the historical rows and the keys derived before
// it. ok=false falls through to the default.
type rule struct {
	key      Key
	fallback float64
	derive   func(h historical.Set, a *AssumptionSet) (float64, bool)
}

// rules run in order; margin depends on starting revenue.
var rules = []rule{
	{KeyStartingRevenue, DefaultStartingRevenue, func(h historical.Set, _ *AssumptionSet) (float64, bool) {
		return h.Get(historical.Revenue).Last()
	}},
	{KeyRevenueGrowth, DefaultRevenueGrowth, func(h historical.Set, _ *AssumptionSet) (float64, bool) {
		rev := h.Get(historical.Revenue)
		last, ok := rev.Last()
		if !ok {
			return 0, false
		}
		prev, ok := rev.SecondLast()
		if !ok || prev == 0 {
			return 0, false
		}
		return last/prev - 1, true
	}},
	{KeyMargin, DefaultMargin, func(h historical.Set, a *AssumptionSet) (float64, bool) {
		cost, ok := h.Get(historical.CostOfSales).Last()
		if !ok || a.StartingRevenue == 0 {
			return 0, false
		}
		return cost / a.StartingRevenue, true
	}},
	{KeyDebt, DefaultDebt, func(h historical.Set, _ *AssumptionSet) (float64, bool) {
		return h.Get(historical.Debt).Last()
	}},
	{KeyInterestRate, DefaultInterestRate, nil},
	{KeyDiscountRate, DefaultDiscountRate, nil},
	{KeyExitMultiple, DefaultExitMultiple, nil},
}

// Derive turns historical rows into a complete AssumptionSet. Missing data
// falls back to the documented defaults; it never fails for absence. The only
// failure is a series holding values no numeric cell could produce.
func Derive(h historical.Set) (*AssumptionSet, error) {
	return derive(h, rules)
}

func derive(h historical.Set, rules []rule) (*AssumptionSet, error) {
	if err := h.Check(); err != nil {
		return nil, err
	}

	a := &AssumptionSet{Sources: make(map[Key]Source, len(Keys))}
	for _, r := range rules {
		if r.derive != nil {
			if v, ok := r.derive(h, a); ok {
				if err := a.Set(r.key, v, SourceDerived); err != nil {
					return nil, err
				}
				continue
			}
		}
		if err := a.Set(r.key, r.fallback, SourceDefault); err != nil {
			return nil, err
		}
	}

	a.HistoricalCash = h.Get(historical.Cash)
	a.HistoricalCapex = h.Get(historical.Capex)
	a.HistoricalCashflow = h.Get(historical.NetCashFlow)
	return a.Clone(), nil
}

// Defaults returns the set derived from no history at all.
func Defaults() *AssumptionSet {
	a, _ := Derive(nil)
	return a
}
