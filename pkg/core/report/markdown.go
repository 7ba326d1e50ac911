package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/projection"
	"financial_model/pkg/core/utils"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/models"
)

// OutlierThresholdPct is the year-over-year move, in percent, above which a
// historical observation is flagged in the report.
const OutlierThresholdPct = 50.0

// Markdown renders the run as a Markdown document: headline value, history,
// assumptions, the three statements, scenarios, the sensitivity table and,
// when present, the Monte Carlo summary and linkage failures.
func Markdown(rec *models.RunRecord) string {
	var sb strings.Builder
	section := func(title, body string) {
		sb.WriteString("## " + title + "\n\n")
		sb.WriteString(body)
		sb.WriteString("\n")
	}

	sb.WriteString("# Valuation Report\n\n")
	fmt.Fprintf(&sb, "**Enterprise Value:** %s\n\n", Money(rec.EnterpriseValue()))
	var meta []string
	if rec.Source != "" {
		meta = append(meta, "Source: `"+rec.Source+"`")
	}
	meta = append(meta, fmt.Sprintf("Horizon: %d years", rec.Years))
	if rec.ID != "" {
		meta = append(meta, "Run: `"+rec.ID+"`")
	}
	sb.WriteString(strings.Join(meta, " · ") + "\n\n")

	if body := historySection(rec.Historical); body != "" {
		section("Historical", body)
	}

	if rec.Assumptions != nil {
		var rows [][]string
		for _, r := range rec.Assumptions.Table() {
			rows = append(rows, []string{string(r.Key), AssumptionValue(r.Key, r.Value), string(r.Source)})
		}
		section("Assumptions", utils.MarkdownTable([]string{"Assumption", "Value", "Source"}, rows))
	}

	if rec.Statements != nil {
		for _, t := range rec.Statements.Tables() {
			section(t.Name, statementTable(t))
		}
	}

	v := rec.Valuation
	section("Valuation", utils.MarkdownTable([]string{"Item", "Value"}, [][]string{
		{"Discount Rate", Percent(v.DiscountRate)},
		{"Exit Multiple", Multiple(v.ExitMultiple)},
		{"PV of Cash Flows", Money(v.NPV)},
		{"Terminal Value", Money(v.TerminalValue)},
		{"PV of Terminal Value", Money(v.PVTerminal)},
		{"Enterprise Value", Money(v.EnterpriseValue)},
	}))

	if len(rec.Scenarios) > 0 {
		section("Scenario Analysis", scenarioTable(rec.Scenarios))
	}
	if g := rec.Sensitivity; g != nil && len(g.Cells) > 0 {
		section("Sensitivity", "Enterprise value by discount rate (rows) and exit multiple (columns).\n\n"+sensitivityTable(g.Rates, g.Multiples, g.Matrix()))
	}
	if mc := rec.MonteCarlo; mc != nil {
		d := mc.Distribution
		section("Monte Carlo", fmt.Sprintf("%d samples, seed %d, growth σ %s, margin σ %s.\n\n", mc.Samples, mc.Seed, Percent(mc.GrowthSigma), Percent(mc.MarginSigma))+
			utils.MarkdownTable([]string{"Statistic", "Enterprise Value"}, [][]string{
				{"Mean", Money(d.Mean)},
				{"Std Dev", Money(d.StdDev)},
				{"Min", Money(d.Min)},
				{"P5", Money(d.P5)},
				{"P50", Money(d.P50)},
				{"P95", Money(d.P95)},
				{"Max", Money(d.Max)},
			}))
	}
	if c := rec.Checks; c != nil && !c.AllPassed {
		var b strings.Builder
		for _, f := range c.Failures() {
			b.WriteString("- " + f + "\n")
		}
		section("Linkage Failures", b.String())
	}

	return sb.String()
}

// HTML renders Markdown(rec) as a standalone HTML page.
func HTML(rec *models.RunRecord) (string, error) {
	body, err := utils.RenderHTML(Markdown(rec))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Valuation Report</title>\n")
	sb.WriteString("<style>body{font-family:sans-serif;max-width:960px;margin:2em auto}table{border-collapse:collapse;margin-bottom:1em}th,td{border:1px solid #ccc;padding:4px 8px;text-align:right}th:first-child,td:first-child{text-align:left}</style>\n")
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// historySection summarises revenue growth and flags outlier moves in any
// series. Empty when revenue has fewer than two observations.
func historySection(h historical.Set) string {
	rev := h.Get(historical.Revenue)
	yoy := validate.SeriesYoY(historical.Revenue, rev)
	if len(yoy) == 0 {
		return ""
	}
	var sb strings.Builder
	rows := make([][]string, 0, len(yoy))
	for _, y := range yoy {
		rows = append(rows, []string{strconv.Itoa(y.Period), Money(y.Prior), Money(y.Current), pct(y.ChangePct)})
	}
	sb.WriteString(utils.MarkdownTable([]string{"Period", "Prior Revenue", "Revenue", "YoY"}, rows))
	if c, err := validate.SeriesCAGR(rev); err == nil {
		fmt.Fprintf(&sb, "\nRevenue CAGR over %d periods: %s\n", c.Years, pct(c.CAGR))
	}
	if out := validate.ScanOutliers(h, OutlierThresholdPct); len(out) > 0 {
		sb.WriteString("\nFlagged observations:\n\n")
		for _, o := range out {
			fmt.Fprintf(&sb, "- %s, period %d: %s\n", o.Item, o.Period, o.Reason)
		}
	}
	return sb.String()
}

// pct formats a value already expressed in percent.
func pct(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func statementTable(t projection.Table) string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, len(r))
		for i, v := range r {
			if i == 0 {
				cells[i] = strconv.Itoa(int(v))
				continue
			}
			cells[i] = Money(v)
		}
		rows = append(rows, cells)
	}
	return utils.MarkdownTable(t.Columns, rows)
}

func scenarioTable(scs []models.ScenarioValue) string {
	rows := make([][]string, 0, len(scs))
	for _, s := range scs {
		rows = append(rows, []string{s.Name, Percent(s.RevenueGrowth), Percent(s.Margin), Money(s.EnterpriseValue)})
	}
	return utils.MarkdownTable([]string{"Scenario", "Revenue Growth", "Margin", "Enterprise Value"}, rows)
}

func sensitivityTable(rates, multiples []float64, m [][]float64) string {
	headers := []string{"Discount Rate"}
	for _, x := range multiples {
		headers = append(headers, Multiple(x))
	}
	rows := make([][]string, 0, len(rates))
	for i, r := range rates {
		row := []string{Percent(r)}
		for _, v := range m[i] {
			row = append(row, Money(v))
		}
		rows = append(rows, row)
	}
	return utils.MarkdownTable(headers, rows)
}
