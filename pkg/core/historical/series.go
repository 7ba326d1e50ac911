// Package historical holds the raw historical rows fed into the assumption
// deriver: one ordered series of optional values per semantic label.
package historical

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"financial_model/pkg/core/modelerr"
)

// Label is the semantic key of a historical row.
type Label string

const (
	Revenue      Label = "revenue"
	CostOfSales  Label = "cost_of_sales"
	EBITDA       Label = "ebitda"
	Depreciation Label = "depreciation"
	Capex        Label = "capex"
	Debt         Label = "debt"
	Cash         Label = "cash"
	Equity       Label = "equity"
	NetCashFlow  Label = "net_cash_flow"
)

// Labels lists every recognised label in display order.
var Labels = []Label{Revenue, CostOfSales, EBITDA, Depreciation, Capex, Debt, Cash, Equity, NetCashFlow}

// ParseLabel resolves a label name, accepting a few common aliases.
func ParseLabel(s string) (Label, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	switch key {
	case "revenue", "turnover", "historical_revenue":
		return Revenue, true
	case "cost_of_sales", "costs", "cogs", "historical_costs":
		return CostOfSales, true
	case "ebitda", "historical_ebitda":
		return EBITDA, true
	case "depreciation", "historical_depreciation":
		return Depreciation, true
	case "capex", "historical_capex":
		return Capex, true
	case "debt", "loan", "loans", "historical_debt":
		return Debt, true
	case "cash", "historical_cash":
		return Cash, true
	case "equity", "historical_equity":
		return Equity, true
	case "net_cash_flow", "cash_flow", "cashflow", "historical_cashflow":
		return NetCashFlow, true
	}
	return "", false
}

// Series is chronological, oldest first. A nil entry is an absent cell.
type Series []*float64

// Values builds a fully-present series.
func Values(vals ...float64) Series {
	s := make(Series, len(vals))
	for i := range vals {
		v := vals[i]
		s[i] = &v
	}
	return s
}

// Present returns the present values in order.
func (s Series) Present() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Last returns the most recent present value.
func (s Series) Last() (float64, bool) {
	p := s.Present()
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

// SecondLast returns the present value before Last.
func (s Series) SecondLast() (float64, bool) {
	p := s.Present()
	if len(p) < 2 {
		return 0, false
	}
	return p[len(p)-2], true
}

// Check rejects values that could never have come out of a numeric cell.
func (s Series) Check(label Label) error {
	for i, v := range s {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return modelerr.MalformedInput("historical", "non-finite value in %s series", label).
				With("label", string(label)).With("index", i)
		}
	}
	return nil
}

// MarshalJSON writes absent cells as null.
func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, len(s))
	for i, v := range s {
		if v != nil {
			out[i] = *v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts numbers, numeric strings and nulls.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return modelerr.MalformedInput("historical", "series is not an array: %v", err)
	}
	parsed, err := coerceRow("series", raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Set maps each label to its series. Any label may be missing.
type Set map[Label]Series

// Get returns the series for label, or nil.
func (hs Set) Get(label Label) Series {
	if hs == nil {
		return nil
	}
	return hs[label]
}

// Check validates every series.
func (hs Set) Check() error {
	keys := make([]string, 0, len(hs))
	for l := range hs {
		keys = append(keys, string(l))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := hs[Label(k)].Check(Label(k)); err != nil {
			return err
		}
	}
	return nil
}

// FromRaw converts decoded JSON/YAML rows into a Set. Unknown keys are
// ignored; values must be numbers, numeric strings or null.
func FromRaw(raw map[string][]interface{}) (Set, error) {
	out := make(Set)
	for key, row := range raw {
		label, ok := ParseLabel(key)
		if !ok {
			continue
		}
		s, err := coerceRow(key, row)
		if err != nil {
			return nil, err
		}
		out[label] = s
	}
	return out, nil
}

func coerceRow(key string, row []interface{}) (Series, error) {
	s := make(Series, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case nil:
		case float64:
			f := v
			s[i] = &f
		case int:
			f := float64(v)
			s[i] = &f
		case int64:
			f := float64(v)
			s[i] = &f
		case json.Number:
			if f, err := v.Float64(); err == nil {
				s[i] = &f
			}
		case string:
			s[i] = ParseCell(v)
		default:
			return nil, modelerr.MalformedInput("historical", "cell %d of %q has type %T", i, key, cell).
				With("label", key)
		}
	}
	return s, nil
}

// ParseCell coerces a raw spreadsheet cell. Thousands separators, currency
// symbols and accounting parentheses are understood; anything else that is
// not a number, percentages included, becomes absent.
func ParseCell(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "nan") {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(",", "", "$", "", "£", "", "€", "", " ", "").Replace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if negative {
		f = -f
	}
	return &f
}

// ParseRow coerces every cell of a row.
func ParseRow(cells []string) Series {
	s := make(Series, len(cells))
	for i, c := range cells {
		s[i] = ParseCell(c)
	}
	return s
}

// String renders a series compactly for logs.
func (s Series) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		if v == nil {
			parts[i] = "-"
			continue
		}
		parts[i] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}
