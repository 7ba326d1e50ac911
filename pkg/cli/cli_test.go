package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/models"
)

const history = `{"revenue": [909090.909090909, 1000000], "cost_of_sales": [360000, 400000]}`

// setup isolates config and storage and returns a JSON input file.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FINMODEL_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("FINMODEL_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FINMODEL_YEARS", "")
	input := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(input, []byte(history), 0644))
	return input
}

func execute(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "finmodel", cmd.Use)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range []string{"run", "scenarios", "sensitivity", "montecarlo", "check", "export", "list"} {
		assert.True(t, names[n], "missing subcommand %s", n)
	}
	for _, f := range []string{"config", "log-level", "output", "workers"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(f), "missing flag %s", f)
	}
}

func TestRun_JSON(t *testing.T) {
	input := setup(t)
	out, err := execute("run", input, "--years", "3", "-o", "json")
	require.NoError(t, err)

	var rec models.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, input, rec.Source)
	assert.Equal(t, 3, rec.Years)
	assert.InDelta(t, 4_363_636.36, rec.EnterpriseValue(), 0.01)
	assert.Len(t, rec.Scenarios, 3)
	assert.Len(t, rec.Sensitivity.Cells, 48)
	assert.Nil(t, rec.MonteCarlo)
	assert.Empty(t, rec.ID)
}

func TestRun_TextAndExports(t *testing.T) {
	input := setup(t)
	dir := filepath.Dir(input)
	xlsx := filepath.Join(dir, "out.xlsx")
	html := filepath.Join(dir, "out.html")

	out, err := execute("run", input, "--years", "3", "--xlsx", xlsx, "--html", html)
	require.NoError(t, err)
	assert.Contains(t, out, "Enterprise Value: 4,363,636")
	assert.Contains(t, out, "Scenario Analysis")
	assert.Contains(t, out, "Sensitivity (Enterprise Value)")
	assert.FileExists(t, xlsx)
	assert.FileExists(t, html)
}

func TestRun_NoInputUsesDefaults(t *testing.T) {
	setup(t)
	out, err := execute("run", "--years", "1", "-o", "json")
	require.NoError(t, err)
	var rec models.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 1_000_000.0, rec.Assumptions.StartingRevenue)
	assert.Equal(t, 0.10, rec.Assumptions.RevenueGrowth)
}

func TestRun_Overrides(t *testing.T) {
	input := setup(t)
	ov := filepath.Join(filepath.Dir(input), "overrides.hjson")
	require.NoError(t, os.WriteFile(ov, []byte("{\n  # tighter\n  exit_multiple: 6\n}\n"), 0644))

	out, err := execute("run", input, "--overrides", ov, "-o", "json")
	require.NoError(t, err)
	var rec models.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 6.0, rec.Assumptions.ExitMultiple)
	assert.Equal(t, 6.0, rec.Valuation.ExitMultiple)
}

func TestRun_SaveListExport(t *testing.T) {
	input := setup(t)
	out, err := execute("run", input, "--save", "--samples", "10", "--seed", "4", "-o", "json")
	require.NoError(t, err)
	var rec models.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.NotEmpty(t, rec.ID)
	require.NotNil(t, rec.MonteCarlo)
	assert.Equal(t, int64(4), rec.MonteCarlo.Seed)

	out, err = execute("list", "-o", "json")
	require.NoError(t, err)
	var runs []models.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, rec.ID, runs[0].ID)

	md := filepath.Join(filepath.Dir(input), "run.md")
	_, err = execute("export", rec.ID, "--md", md)
	require.NoError(t, err)
	data, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Valuation Report")

	_, err = execute("export", rec.ID)
	assert.Error(t, err)
}

func TestScenarios(t *testing.T) {
	input := setup(t)
	out, err := execute("scenarios", input, "-o", "json")
	require.NoError(t, err)
	var scs []models.ScenarioValue
	require.NoError(t, json.Unmarshal([]byte(out), &scs))
	require.Len(t, scs, 3)
	assert.Equal(t, "Downside", scs[2].Name)
}

func TestSensitivity_CustomAxes(t *testing.T) {
	input := setup(t)
	out, err := execute("sensitivity", input, "--multiple-min", "4", "--multiple-max", "5", "-o", "json")
	require.NoError(t, err)
	var g scenario.Grid
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Rates, 8)
	assert.Equal(t, scenario.Axis{4, 5}, g.Multiples)
	assert.Len(t, g.Cells, 16)

	_, err = execute("sensitivity", input, "--multiple-min", "6", "--multiple-max", "5")
	assert.Error(t, err)
}

func TestMonteCarlo(t *testing.T) {
	input := setup(t)
	out, err := execute("montecarlo", input, "--samples", "30", "--seed", "5", "-o", "json")
	require.NoError(t, err)
	var mc models.MonteCarloSummary
	require.NoError(t, json.Unmarshal([]byte(out), &mc))
	assert.Equal(t, int64(5), mc.Seed)
	assert.Equal(t, 30, mc.Distribution.Count)
	assert.Len(t, mc.Values, 30)
}

func TestCheck(t *testing.T) {
	input := setup(t)
	out, err := execute("check", input)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")

	out, err = execute("check", input, "-o", "json")
	require.NoError(t, err)
	var rep validate.LinkageReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.AllPassed)
	assert.Len(t, rep.Years, 5)
}

func TestErrors(t *testing.T) {
	input := setup(t)

	_, err := execute("run", input, "-o", "yaml")
	assert.Error(t, err)

	_, err = execute("run", filepath.Join(filepath.Dir(input), "missing.csv"))
	assert.Error(t, err)

	_, err = execute("run", input, "--years", "-2")
	assert.Error(t, err)
}
