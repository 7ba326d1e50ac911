package projection

// Row is one projected year. Cash flow equals profit and assets equal
// cumulative cash; debt is held at the assumption value.
type Row struct {
	Year           int     `json:"year"` // 1..N
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	Profit         float64 `json:"profit"`
	CashFlow       float64 `json:"cash_flow"`
	CumulativeCash float64 `json:"cumulative_cash"`
	Assets         float64 `json:"assets"`
	Debt           float64 `json:"debt"`
	Equity         float64 `json:"equity"`
}

// Statements is the projected three-statement model.
type Statements struct {
	Rows []Row `json:"rows"`
}

// Table is a column-oriented view of one statement, ready for display or export.
type Table struct {
	Name    string      `json:"name"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Years returns the horizon length.
func (s *Statements) Years() int { return len(s.Rows) }

// CashFlows returns the cash-flow series fed into the valuation engine.
func (s *Statements) CashFlows() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.CashFlow
	}
	return out
}

// Revenues returns the revenue series.
func (s *Statements) Revenues() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Revenue
	}
	return out
}

// IncomeStatement returns Year / Revenue / Costs / Profit.
func (s *Statements) IncomeStatement() Table {
	t := Table{Name: "Income Statement", Columns: []string{"Year", "Revenue", "Costs", "Profit"}}
	for _, r := range s.Rows {
		t.Rows = append(t.Rows, []float64{float64(r.Year), r.Revenue, r.Cost, r.Profit})
	}
	return t
}

// CashFlow returns Year / Cash Flow.
func (s *Statements) CashFlow() Table {
	t := Table{Name: "Cash Flow", Columns: []string{"Year", "Cash Flow"}}
	for _, r := range s.Rows {
		t.Rows = append(t.Rows, []float64{float64(r.Year), r.CashFlow})
	}
	return t
}

// BalanceSheet returns Year / Assets / Debt / Equity.
func (s *Statements) BalanceSheet() Table {
	t := Table{Name: "Balance Sheet", Columns: []string{"Year", "Assets", "Debt", "Equity"}}
	for _, r := range s.Rows {
		t.Rows = append(t.Rows, []float64{float64(r.Year), r.Assets, r.Debt, r.Equity})
	}
	return t
}

// Tables returns the three statements in report order.
func (s *Statements) Tables() []Table {
	return []Table{s.IncomeStatement(), s.CashFlow(), s.BalanceSheet()}
}
