// Package valuation implements the exit-multiple DCF used to value the
// projected cash flows.
package valuation

import (
	"math"

	"financial_model/pkg/core/modelerr"
)

// DCFInput encapsulates all inputs required for a Discounted Cash Flow valuation
type DCFInput struct {
	CashFlows    []float64 `json:"cash_flows"`    // year 1..n, end-of-year
	DiscountRate float64   `json:"discount_rate"` // e.g. 0.10, must be > -1
	ExitMultiple float64   `json:"exit_multiple"` // applied to the final cash flow
}

// DCFResult holds the valuation outputs
type DCFResult struct {
	EnterpriseValue float64   `json:"enterprise_value"`
	NPV             float64   `json:"npv"`            // PV of the explicit cash flows
	TerminalValue   float64   `json:"terminal_value"` // undiscounted
	PVTerminal      float64   `json:"pv_terminal"`
	DiscountFactors []float64 `json:"discount_factors"`
	DiscountRate    float64   `json:"discount_rate"`
	ExitMultiple    float64   `json:"exit_multiple"`
}

// CalculateDCF discounts each cash flow from the end of its year and adds the
// terminal value, taken as the last cash flow times the exit multiple and
// discounted over the full horizon.
func CalculateDCF(input DCFInput) (DCFResult, error) {
	n := len(input.CashFlows)
	if n == 0 {
		return DCFResult{}, modelerr.InvalidValuationInput("value", "cash flow series is empty")
	}
	if math.IsNaN(input.DiscountRate) || input.DiscountRate <= -1 {
		return DCFResult{}, modelerr.InvalidValuationInput("value", "discount rate must be > -1").
			With("discount_rate", input.DiscountRate)
	}
	if math.IsNaN(input.ExitMultiple) || math.IsInf(input.ExitMultiple, 0) || math.IsInf(input.DiscountRate, 0) {
		return DCFResult{}, modelerr.InvalidValuationInput("value", "discount rate and exit multiple must be finite").
			With("discount_rate", input.DiscountRate).With("exit_multiple", input.ExitMultiple)
	}

	var npv float64
	factors := make([]float64, n)
	for i, cf := range input.CashFlows {
		if math.IsNaN(cf) || math.IsInf(cf, 0) {
			return DCFResult{}, modelerr.InvalidValuationInput("value", "cash flow %d is not finite", i+1).
				With("year", i+1)
		}
		factors[i] = 1 / math.Pow(1+input.DiscountRate, float64(i+1))
		npv += cf * factors[i]
	}

	// Terminal value on the final cash flow, not EBITDA.
	tv := input.CashFlows[n-1] * input.ExitMultiple
	pvTerminal := tv * factors[n-1]

	return DCFResult{
		EnterpriseValue: npv + pvTerminal,
		NPV:             npv,
		TerminalValue:   tv,
		PVTerminal:      pvTerminal,
		DiscountFactors: factors,
		DiscountRate:    input.DiscountRate,
		ExitMultiple:    input.ExitMultiple,
	}, nil
}

// Value returns only the enterprise value.
func Value(cashFlows []float64, discountRate, exitMultiple float64) (float64, error) {
	res, err := CalculateDCF(DCFInput{CashFlows: cashFlows, DiscountRate: discountRate, ExitMultiple: exitMultiple})
	if err != nil {
		return 0, err
	}
	return res.EnterpriseValue, nil
}
