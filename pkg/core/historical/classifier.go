package historical

import "strings"

// Sheet names of the source workbook.
const (
	SheetFirstView    = "First View"
	SheetFixedAssets  = "Fixed Assets"
	SheetBalanceSheet = "Balance Sheet"
	SheetCashflow     = "Cashflow"
)

// Sheets lists the workbook sheets in the order they are scanned.
var Sheets = []string{SheetFirstView, SheetFixedAssets, SheetBalanceSheet, SheetCashflow}

// Classifier maps a row caption to a label. It is a best-effort text matcher
// and lives outside the numeric core; an unknown caption is not an error.
type Classifier interface {
	Classify(sheet, caption string) (Label, bool)
}

// Rule matches a lower-cased caption.
type Rule struct {
	Label    Label
	Contains []string
	Exact    []string
}

func (r Rule) match(caption string) bool {
	for _, e := range r.Exact {
		if caption == e {
			return true
		}
	}
	for _, c := range r.Contains {
		if strings.Contains(caption, c) {
			return true
		}
	}
	return false
}

// RuleClassifier applies ordered substring rules, scoped by sheet.
type RuleClassifier struct {
	// Rules per sheet name. Order matters: the first matching rule wins.
	Rules map[string][]Rule
	// Order of sheets tried for captions that come from an unnamed table.
	Order []string
}

// DefaultClassifier returns the rules used for the standard model workbook.
func DefaultClassifier() *RuleClassifier {
	return &RuleClassifier{
		Rules: map[string][]Rule{
			SheetFirstView: {
				{Label: Revenue, Contains: []string{"turnover", "revenue"}},
				{Label: CostOfSales, Contains: []string{"cost of sales"}},
				{Label: EBITDA, Contains: []string{"ebitda"}},
				{Label: Depreciation, Contains: []string{"depreciation"}},
			},
			SheetFixedAssets: {
				{Label: Capex, Contains: []string{"capex", "additions"}},
			},
			SheetBalanceSheet: {
				{Label: Debt, Contains: []string{"debt", "loan"}},
				{Label: Cash, Contains: []string{"cash"}},
				{Label: Equity, Contains: []string{"equity"}},
			},
			SheetCashflow: {
				{Label: NetCashFlow, Contains: []string{"net cash flow"}, Exact: []string{"cash flow"}},
			},
		},
		Order: Sheets,
	}
}

// Classify implements Classifier. An empty sheet name tries every sheet's
// rules in Order.
func (c *RuleClassifier) Classify(sheet, caption string) (Label, bool) {
	key := strings.ToLower(strings.TrimSpace(caption))
	if key == "" {
		return "", false
	}
	if sheet != "" {
		return c.classifyIn(sheet, key)
	}
	for _, s := range c.Order {
		if l, ok := c.classifyIn(s, key); ok {
			return l, true
		}
	}
	return "", false
}

func (c *RuleClassifier) classifyIn(sheet, key string) (Label, bool) {
	for _, r := range c.Rules[sheet] {
		if r.match(key) {
			return r.Label, true
		}
	}
	return "", false
}

// Collect classifies captioned rows into a Set. A later row with the same
// label replaces an earlier one.
func Collect(c Classifier, sheet string, rows [][]string, into Set) Set {
	if into == nil {
		into = make(Set)
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		label, ok := c.Classify(sheet, row[0])
		if !ok {
			continue
		}
		into[label] = ParseRow(row[1:])
	}
	return into
}
