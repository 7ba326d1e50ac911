// Package report renders a run record for people: an .xlsx workbook with
// one sheet per table, and a Markdown document that also renders to HTML.
// Rounding happens here only; stored records keep full precision.
package report

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"financial_model/pkg/core/assumption"
)

var printer = message.NewPrinter(language.English)

// Money rounds to the nearest unit with thousands separators.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	r := math.Round(v)
	if r == 0 {
		r = 0 // drop negative zero
	}
	return printer.Sprintf("%.0f", r)
}

// Percent renders a decimal rate as a percentage with one decimal.
func Percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// Multiple renders an exit multiple, e.g. 5x or 5.5x.
func Multiple(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "x"
}

// isRate reports whether an assumption is shown as a percentage.
func isRate(k assumption.Key) bool {
	switch k {
	case assumption.KeyRevenueGrowth, assumption.KeyMargin, assumption.KeyInterestRate, assumption.KeyDiscountRate:
		return true
	}
	return false
}

// AssumptionValue formats an assumption the way reports show it.
func AssumptionValue(k assumption.Key, v float64) string {
	switch {
	case isRate(k):
		return Percent(v)
	case k == assumption.KeyExitMultiple:
		return Multiple(v)
	default:
		return Money(v)
	}
}
