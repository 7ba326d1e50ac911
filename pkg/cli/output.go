package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"financial_model/pkg/core/projection"
	"financial_model/pkg/core/report"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/models"
)

// textRenderer is implemented by results that have a human layout.
type textRenderer interface {
	RenderText(w io.Writer) error
}

// PrintResult outputs data in the format chosen by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), data)
	}
	if tr, ok := data.(textRenderer); ok {
		return tr.RenderText(cmd.OutOrStdout())
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", data)
	return err
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// writeTable renders an aligned table with a title line.
func writeTable(w io.Writer, title string, headers []string, rows [][]string) error {
	if title != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(headers, "\t")+"\t")
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")+"\t")
	}
	return tw.Flush()
}

func statementRows(t projection.Table) [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, len(r))
		for i, v := range r {
			if i == 0 {
				cells[i] = strconv.Itoa(int(v))
				continue
			}
			cells[i] = report.Money(v)
		}
		rows = append(rows, cells)
	}
	return rows
}

// runView is the text layout of a full run.
type runView struct{ *models.RunRecord }

func (v runView) MarshalJSON() ([]byte, error) { return json.Marshal(v.RunRecord) }

func (v runView) RenderText(w io.Writer) error {
	rec := v.RunRecord
	if rec.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", rec.Source)
	}
	if rec.ID != "" {
		fmt.Fprintf(w, "Run:    %s\n", rec.ID)
	}

	var rows [][]string
	for _, r := range rec.Assumptions.Table() {
		rows = append(rows, []string{string(r.Key), report.AssumptionValue(r.Key, r.Value), string(r.Source)})
	}
	if err := writeTable(w, "Assumptions", []string{"Assumption", "Value", "Source"}, rows); err != nil {
		return err
	}

	for _, t := range rec.Statements.Tables() {
		if err := writeTable(w, t.Name, t.Columns, statementRows(t)); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nEnterprise Value: %s  (PV cash flows %s + PV terminal %s)\n",
		report.Money(rec.Valuation.EnterpriseValue), report.Money(rec.Valuation.NPV), report.Money(rec.Valuation.PVTerminal))

	if len(rec.Scenarios) > 0 {
		if err := (scenarioView(rec.Scenarios)).RenderText(w); err != nil {
			return err
		}
	}
	if rec.Sensitivity != nil {
		if err := (gridView{rec.Sensitivity}).RenderText(w); err != nil {
			return err
		}
	}
	if rec.MonteCarlo != nil {
		if err := (monteCarloView{rec.MonteCarlo}).RenderText(w); err != nil {
			return err
		}
	}
	if rec.Checks != nil && !rec.Checks.AllPassed {
		fmt.Fprintf(w, "\nLinkage failures:\n  %s\n", strings.Join(rec.Checks.Failures(), "\n  "))
	}
	return nil
}

type scenarioView []models.ScenarioValue

func (v scenarioView) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		rows = append(rows, []string{s.Name, report.Percent(s.RevenueGrowth), report.Percent(s.Margin), report.Money(s.EnterpriseValue)})
	}
	return writeTable(w, "Scenario Analysis", []string{"Scenario", "Growth", "Margin", "Enterprise Value"}, rows)
}

type gridView struct{ *scenario.Grid }

func (v gridView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Grid) }

func (v gridView) RenderText(w io.Writer) error {
	headers := []string{"Rate \\ Multiple"}
	for _, m := range v.Multiples {
		headers = append(headers, report.Multiple(m))
	}
	matrix := v.Matrix()
	rows := make([][]string, 0, len(v.Rates))
	for i, r := range v.Rates {
		row := []string{report.Percent(r)}
		for _, ev := range matrix[i] {
			row = append(row, report.Money(ev))
		}
		rows = append(rows, row)
	}
	return writeTable(w, "Sensitivity (Enterprise Value)", headers, rows)
}

type monteCarloView struct{ *models.MonteCarloSummary }

func (v monteCarloView) MarshalJSON() ([]byte, error) { return json.Marshal(v.MonteCarloSummary) }

func (v monteCarloView) RenderText(w io.Writer) error {
	d := v.Distribution
	title := fmt.Sprintf("Monte Carlo (%d samples, seed %d)", v.Samples, v.Seed)
	return writeTable(w, title, []string{"Mean", "Std Dev", "P5", "P50", "P95", "Min", "Max"}, [][]string{{
		report.Money(d.Mean), report.Money(d.StdDev), report.Money(d.P5), report.Money(d.P50),
		report.Money(d.P95), report.Money(d.Min), report.Money(d.Max),
	}})
}

type checkView struct{ *validate.LinkageReport }

func (v checkView) MarshalJSON() ([]byte, error) { return json.Marshal(v.LinkageReport) }

func (v checkView) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(v.Years))
	for _, y := range v.Years {
		status := "ok"
		if !y.AllPassed {
			status = strings.Join(y.FailedChecks, ", ")
		}
		rows = append(rows, []string{strconv.Itoa(y.Year), status})
	}
	if err := writeTable(w, "Linkage Checks", []string{"Year", "Status"}, rows); err != nil {
		return err
	}
	verdict := "PASS"
	if !v.AllPassed {
		verdict = "FAIL"
	}
	_, err := fmt.Fprintf(w, "\n%s (tolerance %g)\n", verdict, v.Tolerance)
	return err
}

type listView []models.RunSummary

func (v listView) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		rows = append(rows, []string{s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), strconv.Itoa(s.Years), report.Money(s.EnterpriseValue), s.Source})
	}
	return writeTable(w, "", []string{"ID", "Created", "Years", "Enterprise Value", "Source"}, rows)
}
