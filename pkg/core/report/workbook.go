package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"financial_model/pkg/core/projection"
	"financial_model/pkg/models"
)

// Sheet names, in workbook order.
const (
	SheetIncome      = "Income Statement"
	SheetCashFlow    = "Cash Flow"
	SheetBalance     = "Balance Sheet"
	SheetValuation   = "Valuation"
	SheetScenarios   = "Scenarios"
	SheetSensitivity = "Sensitivity"
	SheetMonteCarlo  = "Monte Carlo"
)

const (
	numFmtThousands = 3  // #,##0
	numFmtPercent   = 10 // 0.00%
)

type workbook struct {
	f       *excelize.File
	header  int
	money   int
	percent int
}

// WriteWorkbook writes rec as an .xlsx workbook to w. Values are written
// unrounded; number formats handle display.
func WriteWorkbook(w io.Writer, rec *models.RunRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	wb, err := newWorkbook(f)
	if err != nil {
		return err
	}
	if rec.Statements == nil {
		return fmt.Errorf("run has no statements")
	}

	tables := rec.Statements.Tables()
	if err := f.SetSheetName("Sheet1", SheetIncome); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, t := range tables {
		if i > 0 {
			if _, err := f.NewSheet(t.Name); err != nil {
				return fmt.Errorf("create sheet %s: %w", t.Name, err)
			}
		}
		if err := wb.statement(t); err != nil {
			return err
		}
	}

	if err := wb.valuation(rec); err != nil {
		return err
	}
	if len(rec.Scenarios) > 0 {
		if err := wb.scenarios(rec.Scenarios); err != nil {
			return err
		}
	}
	if g := rec.Sensitivity; g != nil && len(g.Cells) > 0 {
		if err := wb.sensitivity(g.Rates, g.Multiples, g.Matrix()); err != nil {
			return err
		}
	}
	if rec.MonteCarlo != nil {
		if err := wb.monteCarlo(rec.MonteCarlo); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newWorkbook(f *excelize.File) (*workbook, error) {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	return &workbook{f: f, header: header, money: money, percent: percent}, nil
}

// row writes values starting at column 1 of the given 1-based row.
func (wb *workbook) row(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (wb *workbook) headerRow(sheet string, row int, headers []string) error {
	vals := make([]interface{}, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	if err := wb.row(sheet, row, vals); err != nil {
		return err
	}
	return wb.style(sheet, 1, row, len(headers), row, wb.header)
}

func (wb *workbook) style(sheet string, c1, r1, c2, r2, id int) error {
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, from, to, id)
}

func (wb *workbook) newSheet(name string) error {
	if _, err := wb.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return wb.f.SetColWidth(name, "A", "J", 16)
}

func (wb *workbook) statement(t projection.Table) error {
	if err := wb.f.SetColWidth(t.Name, "A", "D", 16); err != nil {
		return err
	}
	if err := wb.headerRow(t.Name, 1, t.Columns); err != nil {
		return err
	}
	for i, r := range t.Rows {
		vals := make([]interface{}, len(r))
		for j, v := range r {
			if j == 0 {
				vals[j] = int(v)
				continue
			}
			vals[j] = v
		}
		if err := wb.row(t.Name, i+2, vals); err != nil {
			return err
		}
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return wb.style(t.Name, 2, 2, len(t.Columns), len(t.Rows)+1, wb.money)
}

func (wb *workbook) valuation(rec *models.RunRecord) error {
	if err := wb.newSheet(SheetValuation); err != nil {
		return err
	}
	v := rec.Valuation
	items := []struct {
		label string
		value float64
		style int
	}{
		{"Discount Rate", v.DiscountRate, wb.percent},
		{"Exit Multiple", v.ExitMultiple, 0},
		{"PV of Cash Flows", v.NPV, wb.money},
		{"Terminal Value", v.TerminalValue, wb.money},
		{"PV of Terminal Value", v.PVTerminal, wb.money},
		{"Enterprise Value", v.EnterpriseValue, wb.money},
	}
	if err := wb.headerRow(SheetValuation, 1, []string{"Item", "Value"}); err != nil {
		return err
	}
	for i, it := range items {
		if err := wb.row(SheetValuation, i+2, []interface{}{it.label, it.value}); err != nil {
			return err
		}
		if it.style != 0 {
			if err := wb.style(SheetValuation, 2, i+2, 2, i+2, it.style); err != nil {
				return err
			}
		}
	}

	if rec.Assumptions == nil {
		return nil
	}
	start := len(items) + 3
	if err := wb.headerRow(SheetValuation, start, []string{"Assumption", "Value", "Source"}); err != nil {
		return err
	}
	for i, r := range rec.Assumptions.Table() {
		row := start + 1 + i
		if err := wb.row(SheetValuation, row, []interface{}{string(r.Key), r.Value, string(r.Source)}); err != nil {
			return err
		}
		if isRate(r.Key) {
			if err := wb.style(SheetValuation, 2, row, 2, row, wb.percent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wb *workbook) scenarios(scs []models.ScenarioValue) error {
	if err := wb.newSheet(SheetScenarios); err != nil {
		return err
	}
	if err := wb.headerRow(SheetScenarios, 1, []string{"Scenario", "Revenue Growth", "Margin", "Enterprise Value"}); err != nil {
		return err
	}
	for i, s := range scs {
		if err := wb.row(SheetScenarios, i+2, []interface{}{s.Name, s.RevenueGrowth, s.Margin, s.EnterpriseValue}); err != nil {
			return err
		}
	}
	last := len(scs) + 1
	if err := wb.style(SheetScenarios, 2, 2, 3, last, wb.percent); err != nil {
		return err
	}
	return wb.style(SheetScenarios, 4, 2, 4, last, wb.money)
}

func (wb *workbook) sensitivity(rates, multiples []float64, m [][]float64) error {
	if err := wb.newSheet(SheetSensitivity); err != nil {
		return err
	}
	header := []interface{}{"Discount Rate"}
	for _, x := range multiples {
		header = append(header, x)
	}
	if err := wb.row(SheetSensitivity, 1, header); err != nil {
		return err
	}
	if err := wb.style(SheetSensitivity, 1, 1, len(header), 1, wb.header); err != nil {
		return err
	}
	for i, r := range rates {
		vals := []interface{}{r}
		for _, v := range m[i] {
			vals = append(vals, v)
		}
		if err := wb.row(SheetSensitivity, i+2, vals); err != nil {
			return err
		}
	}
	last := len(rates) + 1
	if err := wb.style(SheetSensitivity, 1, 2, 1, last, wb.percent); err != nil {
		return err
	}
	return wb.style(SheetSensitivity, 2, 2, len(multiples)+1, last, wb.money)
}

func (wb *workbook) monteCarlo(mc *models.MonteCarloSummary) error {
	if err := wb.newSheet(SheetMonteCarlo); err != nil {
		return err
	}
	d := mc.Distribution
	rows := [][]interface{}{
		{"Samples", mc.Samples},
		{"Seed", fmt.Sprint(mc.Seed)},
		{"Growth Sigma", mc.GrowthSigma},
		{"Margin Sigma", mc.MarginSigma},
		{"Mean", d.Mean},
		{"Std Dev", d.StdDev},
		{"Min", d.Min},
		{"P5", d.P5},
		{"P50", d.P50},
		{"P95", d.P95},
		{"Max", d.Max},
	}
	if err := wb.headerRow(SheetMonteCarlo, 1, []string{"Statistic", "Value"}); err != nil {
		return err
	}
	for i, r := range rows {
		if err := wb.row(SheetMonteCarlo, i+2, r); err != nil {
			return err
		}
	}
	if err := wb.style(SheetMonteCarlo, 2, 4, 2, 5, wb.percent); err != nil {
		return err
	}
	if err := wb.style(SheetMonteCarlo, 2, 6, 2, len(rows)+1, wb.money); err != nil {
		return err
	}

	// Raw draws in column D for charting.
	if err := wb.f.SetCellValue(SheetMonteCarlo, "D1", "Enterprise Value"); err != nil {
		return err
	}
	if err := wb.style(SheetMonteCarlo, 4, 1, 4, 1, wb.header); err != nil {
		return err
	}
	for i, v := range mc.Values {
		cell, err := excelize.CoordinatesToCellName(4, i+2)
		if err != nil {
			return err
		}
		if err := wb.f.SetCellValue(SheetMonteCarlo, cell, v); err != nil {
			return err
		}
	}
	return nil
}
