package validate

import (
	"fmt"
	"math"

	"financial_model/pkg/core/projection"
)

// DefaultTolerance is the absolute tolerance used by the check command.
const DefaultTolerance = 1e-6

// =============================================================================
// CROSS-STATEMENT LINKAGE VALIDATION
// =============================================================================

// YearLinkage holds the three linkage checks for one projected year.
type YearLinkage struct {
	Year         int             `json:"year"`
	Income       *ProfitLinkage  `json:"income"`  // IS: profit = revenue - cost
	Cash         *CashLinkage    `json:"cash"`    // CF -> BS: assets roll forward by cash flow
	Balance      *BalanceLinkage `json:"balance"` // BS: equity = assets - debt
	AllPassed    bool            `json:"all_passed"`
	FailedChecks []string        `json:"failed_checks,omitempty"`
}

// ProfitLinkage validates: Profit == Revenue - Cost
type ProfitLinkage struct {
	Revenue    float64 `json:"revenue"`
	Cost       float64 `json:"cost"`
	Profit     float64 `json:"profit"`
	Difference float64 `json:"difference"`
	IsLinked   bool    `json:"is_linked"`
}

// CashLinkage validates: CashFlow == Profit, and
// Assets[t] == Assets[t-1] + CashFlow[t] with Assets[0] = 0.
type CashLinkage struct {
	CashFlow       float64 `json:"cash_flow"`
	PriorAssets    float64 `json:"prior_assets"`
	Assets         float64 `json:"assets"`
	DifferenceCF   float64 `json:"difference_cash_flow"` // CashFlow - Profit
	DifferenceRoll float64 `json:"difference_roll_forward"`
	IsLinked       bool    `json:"is_linked"`
}

// BalanceLinkage validates: Equity == Assets - Debt
type BalanceLinkage struct {
	Assets     float64 `json:"assets"`
	Debt       float64 `json:"debt"`
	Equity     float64 `json:"equity"`
	Difference float64 `json:"difference"`
	IsLinked   bool    `json:"is_linked"`
}

// LinkageReport aggregates the per-year checks of one projection.
type LinkageReport struct {
	Years     []YearLinkage `json:"years"`
	Tolerance float64       `json:"tolerance"`
	AllPassed bool          `json:"all_passed"`
}

// Failures lists "year N: check" for every failed check.
func (r *LinkageReport) Failures() []string {
	var out []string
	for _, y := range r.Years {
		for _, f := range y.FailedChecks {
			out = append(out, fmt.Sprintf("year %d: %s", y.Year, f))
		}
	}
	return out
}

// CheckStatements validates the accounting identities of every projected row.
func CheckStatements(st *projection.Statements, tolerance float64) *LinkageReport {
	report := &LinkageReport{Tolerance: tolerance, AllPassed: true}
	if st == nil {
		return report
	}

	prevAssets := 0.0
	for _, row := range st.Rows {
		y := CheckYear(row, prevAssets, tolerance)
		if !y.AllPassed {
			report.AllPassed = false
		}
		report.Years = append(report.Years, y)
		prevAssets = row.Assets
	}
	return report
}

// CheckYear validates one row given the prior year's assets.
func CheckYear(row projection.Row, prevAssets, tolerance float64) YearLinkage {
	y := YearLinkage{Year: row.Year, AllPassed: true}

	// 1. Income statement
	diff := row.Profit - (row.Revenue - row.Cost)
	y.Income = &ProfitLinkage{
		Revenue:    row.Revenue,
		Cost:       row.Cost,
		Profit:     row.Profit,
		Difference: diff,
		IsLinked:   within(diff, tolerance),
	}
	if !y.Income.IsLinked {
		y.AllPassed = false
		y.FailedChecks = append(y.FailedChecks, "Profit = Revenue - Cost")
	}

	// 2. Cash flow to balance sheet
	cfDiff := row.CashFlow - row.Profit
	rollDiff := row.Assets - (prevAssets + row.CashFlow)
	y.Cash = &CashLinkage{
		CashFlow:       row.CashFlow,
		PriorAssets:    prevAssets,
		Assets:         row.Assets,
		DifferenceCF:   cfDiff,
		DifferenceRoll: rollDiff,
		IsLinked:       within(cfDiff, tolerance) && within(rollDiff, tolerance),
	}
	if !y.Cash.IsLinked {
		y.AllPassed = false
		y.FailedChecks = append(y.FailedChecks, "Assets = Prior Assets + Cash Flow")
	}

	// 3. Balance sheet
	eqDiff := row.Equity - (row.Assets - row.Debt)
	y.Balance = &BalanceLinkage{
		Assets:     row.Assets,
		Debt:       row.Debt,
		Equity:     row.Equity,
		Difference: eqDiff,
		IsLinked:   within(eqDiff, tolerance),
	}
	if !y.Balance.IsLinked {
		y.AllPassed = false
		y.FailedChecks = append(y.FailedChecks, "Equity = Assets - Debt")
	}

	return y
}

func within(diff, tolerance float64) bool {
	return math.Abs(diff) <= tolerance
}
