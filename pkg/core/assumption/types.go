// Package assumption implements the AssumptionSet that drives the projection:
// a typed record of growth, margin and rate parameters, derived once from
// historical rows and optionally overridden by the user.
package assumption

import (
	"encoding/json"
	"fmt"
	"math"

	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/modelerr"
)

// =============================================================================
// KEYS & PROVENANCE
// =============================================================================

// Key names an assumption parameter.
type Key string

const (
	KeyStartingRevenue Key = "starting_revenue"
	KeyRevenueGrowth   Key = "revenue_growth"
	KeyMargin          Key = "margin"
	KeyDebt            Key = "debt"
	KeyInterestRate    Key = "interest_rate"
	KeyDiscountRate    Key = "discount_rate"
	KeyExitMultiple    Key = "exit_multiple"
)

// Keys lists every required key in display order.
var Keys = []Key{
	KeyStartingRevenue,
	KeyRevenueGrowth,
	KeyMargin,
	KeyDebt,
	KeyInterestRate,
	KeyDiscountRate,
	KeyExitMultiple,
}

// Source records where a value came from.
type Source string

const (
	SourceDerived  Source = "DERIVED"
	SourceDefault  Source = "DEFAULT"
	SourceOverride Source = "OVERRIDE"
)

// =============================================================================
// ASSUMPTION SET
// =============================================================================

// AssumptionSet holds every parameter the projector and valuation engine need.
// A set returned by Derive is complete; pass a Clone to each projection that
// may mutate it.
type AssumptionSet struct {
	StartingRevenue float64 `json:"starting_revenue"`
	RevenueGrowth   float64 `json:"revenue_growth"` // decimal, may be negative
	Margin          float64 `json:"margin"`         // cost of sales / revenue
	Debt            float64 `json:"debt"`
	InterestRate    float64 `json:"interest_rate"`
	DiscountRate    float64 `json:"discount_rate"`
	ExitMultiple    float64 `json:"exit_multiple"`

	Sources map[Key]Source `json:"sources,omitempty"`

	// Carried for display only; the projection does not read them.
	HistoricalCash     historical.Series `json:"historical_cash,omitempty"`
	HistoricalCapex    historical.Series `json:"historical_capex,omitempty"`
	HistoricalCashflow historical.Series `json:"historical_cashflow,omitempty"`
}

// Get returns the value of key.
func (a *AssumptionSet) Get(key Key) (float64, error) {
	switch key {
	case KeyStartingRevenue:
		return a.StartingRevenue, nil
	case KeyRevenueGrowth:
		return a.RevenueGrowth, nil
	case KeyMargin:
		return a.Margin, nil
	case KeyDebt:
		return a.Debt, nil
	case KeyInterestRate:
		return a.InterestRate, nil
	case KeyDiscountRate:
		return a.DiscountRate, nil
	case KeyExitMultiple:
		return a.ExitMultiple, nil
	}
	return 0, fmt.Errorf("unknown assumption key '%s'", key)
}

// Set assigns key and records its source.
func (a *AssumptionSet) Set(key Key, value float64, src Source) error {
	switch key {
	case KeyStartingRevenue:
		a.StartingRevenue = value
	case KeyRevenueGrowth:
		a.RevenueGrowth = value
	case KeyMargin:
		a.Margin = value
	case KeyDebt:
		a.Debt = value
	case KeyInterestRate:
		a.InterestRate = value
	case KeyDiscountRate:
		a.DiscountRate = value
	case KeyExitMultiple:
		a.ExitMultiple = value
	default:
		return fmt.Errorf("unknown assumption key '%s'", key)
	}
	if a.Sources == nil {
		a.Sources = make(map[Key]Source, len(Keys))
	}
	a.Sources[key] = src
	return nil
}

// Validate reports the first key that is unset or not finite.
func (a *AssumptionSet) Validate() error {
	if a == nil {
		return modelerr.InvalidAssumptions("validate", "assumption set is nil")
	}
	for _, k := range Keys {
		v, _ := a.Get(k)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return modelerr.InvalidAssumptions("validate", "assumption '%s' is not a finite number", k).
				With(string(k), v)
		}
		if a.Sources != nil {
			if _, ok := a.Sources[k]; !ok {
				return modelerr.InvalidAssumptions("validate", "assumption '%s' was never set", k)
			}
		}
	}
	return nil
}

// Clone returns an independent copy; mutating it never affects a.
func (a *AssumptionSet) Clone() *AssumptionSet {
	cp := *a
	if a.Sources != nil {
		cp.Sources = make(map[Key]Source, len(a.Sources))
		for k, v := range a.Sources {
			cp.Sources[k] = v
		}
	}
	cp.HistoricalCash = cloneSeries(a.HistoricalCash)
	cp.HistoricalCapex = cloneSeries(a.HistoricalCapex)
	cp.HistoricalCashflow = cloneSeries(a.HistoricalCashflow)
	return &cp
}

func cloneSeries(s historical.Series) historical.Series {
	if s == nil {
		return nil
	}
	out := make(historical.Series, len(s))
	for i, v := range s {
		if v != nil {
			f := *v
			out[i] = &f
		}
	}
	return out
}

// Row is one line of the assumption table.
type Row struct {
	Key    Key     `json:"key"`
	Value  float64 `json:"value"`
	Source Source  `json:"source"`
}

// Table lists every key with its value and source.
func (a *AssumptionSet) Table() []Row {
	rows := make([]Row, 0, len(Keys))
	for _, k := range Keys {
		v, _ := a.Get(k)
		rows = append(rows, Row{Key: k, Value: v, Source: a.Sources[k]})
	}
	return rows
}

// ToJSON serializes the assumption set.
func (a *AssumptionSet) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// FromJSON decodes an assumption set. Every key must be present in the
// payload; a missing key is an InvalidAssumptions error, not a zero.
func FromJSON(data []byte) (*AssumptionSet, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, modelerr.InvalidAssumptions("decode", "invalid assumption JSON: %v", err)
	}
	for _, k := range Keys {
		if raw, ok := fields[string(k)]; !ok || string(raw) == "null" {
			return nil, modelerr.InvalidAssumptions("decode", "assumption '%s' is missing", k)
		}
	}

	var a AssumptionSet
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, modelerr.InvalidAssumptions("decode", "invalid assumption JSON: %v", err)
	}
	if a.Sources == nil {
		a.Sources = make(map[Key]Source, len(Keys))
		for _, k := range Keys {
			a.Sources[k] = SourceOverride
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
