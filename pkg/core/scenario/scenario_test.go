package scenario

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/modelerr"
	"financial_model/pkg/core/projection"
	"financial_model/pkg/core/valuation"
)

func base() *assumption.AssumptionSet {
	a := assumption.Defaults()
	a.StartingRevenue = 1_000_000
	a.RevenueGrowth = 0.10
	a.Margin = 0.40
	return a
}

func TestEvaluate_ConcreteCase(t *testing.T) {
	out, err := Evaluate(base(), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{600_000, 660_000, 726_000}, roundAll(out.Statements.CashFlows()))
	assert.InDelta(t, 4_363_636.36, out.EnterpriseValue(), 0.01)
}

func TestRunScenarios_DefaultsAndOrder(t *testing.T) {
	b := base()
	res, err := RunScenarios(context.Background(), b, DefaultScenarios(), 5)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, "Base", res[0].Name)
	assert.Equal(t, "Upside", res[1].Name)
	assert.Equal(t, "Downside", res[2].Name)

	direct, err := Evaluate(b, 5)
	require.NoError(t, err)
	assert.Equal(t, direct.EnterpriseValue(), res[0].EnterpriseValue())

	assert.InDelta(t, 0.15, res[1].Outcome.Assumptions.RevenueGrowth, 1e-12)
	assert.InDelta(t, 0.45, res[1].Outcome.Assumptions.Margin, 1e-12)
	assert.InDelta(t, 0.05, res[2].Outcome.Assumptions.RevenueGrowth, 1e-12)
	assert.InDelta(t, 0.35, res[2].Outcome.Assumptions.Margin, 1e-12)
}

func TestRunScenarios_Isolation(t *testing.T) {
	b := base()
	_, err := RunScenarios(context.Background(), b, DefaultScenarios(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.10, b.RevenueGrowth)
	assert.Equal(t, 0.40, b.Margin)
}

func TestRunScenarios_BaseMatchesDecliningHistory(t *testing.T) {
	b, err := assumption.Derive(historical.Set{historical.Revenue: historical.Values(1000, 900)})
	require.NoError(t, err)
	require.InDelta(t, -0.10, b.RevenueGrowth, 1e-12)

	direct, err := Evaluate(b, 5)
	require.NoError(t, err)
	res, err := RunScenarios(context.Background(), b, DefaultScenarios(), 5)
	require.NoError(t, err)

	assert.Equal(t, "Base", res[0].Name)
	assert.Equal(t, b.RevenueGrowth, res[0].Outcome.Assumptions.RevenueGrowth)
	assert.Equal(t, direct.EnterpriseValue(), res[0].EnterpriseValue())
	assert.Equal(t, assumption.SourceDerived, res[0].Outcome.Assumptions.Sources[assumption.KeyRevenueGrowth])

	// Downside still floors the perturbed growth.
	assert.Equal(t, 0.0, res[2].Outcome.Assumptions.RevenueGrowth)
}

func TestScenario_ClampsAtZero(t *testing.T) {
	b := base()
	b.RevenueGrowth = 0.02
	b.Margin = 0.01
	a := Scenario{Name: "Stress", GrowthDelta: -0.05, MarginDelta: -0.05}.ApplyTo(b)
	assert.Equal(t, 0.0, a.RevenueGrowth)
	assert.Equal(t, 0.0, a.Margin)
	assert.Equal(t, assumption.SourceOverride, a.Sources[assumption.KeyMargin])

	b.RevenueGrowth = -0.30
	up := Scenario{GrowthDelta: 0.05}.ApplyTo(b)
	assert.Equal(t, 0.0, up.RevenueGrowth)
}

func TestRunScenarios_SequentialMatchesParallel(t *testing.T) {
	scs := append(DefaultScenarios(), Scenario{Name: "Flat", GrowthDelta: -0.1})
	seq, err := NewPipeline(1).RunScenarios(context.Background(), base(), scs, 7)
	require.NoError(t, err)
	par, err := NewPipeline(8).RunScenarios(context.Background(), base(), scs, 7)
	require.NoError(t, err)
	for i := range seq {
		assert.Equal(t, seq[i].Name, par[i].Name)
		assert.Equal(t, seq[i].EnterpriseValue(), par[i].EnterpriseValue())
	}
}

func TestRunScenarios_PropagatesFailure(t *testing.T) {
	_, err := RunScenarios(context.Background(), base(), DefaultScenarios(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))
	assert.Contains(t, err.Error(), "scenario")
}

func TestAxes(t *testing.T) {
	rates := DefaultRateAxis()
	require.Len(t, rates, 8)
	assert.InDelta(t, 0.05, rates[0], 1e-12)
	assert.InDelta(t, 0.19, rates[7], 1e-12)

	assert.Equal(t, Axis{3, 4, 5, 6, 7, 8}, DefaultMultipleAxis())
	assert.Empty(t, StepAxis(1, 0, 1))
	assert.Empty(t, StepAxis(0, 1, 0))
	assert.Equal(t, Axis{0.1}, StepAxis(0.1, 0.1, 0.05))
}

func TestSensitivityGrid_ShapeAndDirectCalls(t *testing.T) {
	b := base()
	g, err := SensitivityGrid(context.Background(), b, DefaultRateAxis(), DefaultMultipleAxis(), 5)
	require.NoError(t, err)
	require.Len(t, g.Cells, 48)

	st, err := projection.Project(b, 5)
	require.NoError(t, err)
	for i, r := range g.Rates {
		for j, m := range g.Multiples {
			c := g.At(i, j)
			assert.Equal(t, r, c.DiscountRate)
			assert.Equal(t, m, c.ExitMultiple)
			ev, err := valuation.Value(st.CashFlows(), r, m)
			require.NoError(t, err)
			assert.Equal(t, ev, c.EnterpriseValue)
		}
	}

	// Row-major order.
	assert.Equal(t, g.Rates[0], g.Cells[5].DiscountRate)
	assert.Equal(t, g.Rates[1], g.Cells[6].DiscountRate)

	m := g.Matrix()
	require.Len(t, m, 8)
	assert.Len(t, m[0], 6)
	assert.Greater(t, m[0][0], m[1][0])
	assert.Less(t, m[0][0], m[0][1])

	assert.Equal(t, 0.10, b.DiscountRate)
	assert.Equal(t, 5.0, b.ExitMultiple)
}

func TestSensitivityGrid_InvalidRateFails(t *testing.T) {
	_, err := SensitivityGrid(context.Background(), base(), Axis{0.1, -1}, Axis{5}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidValuationInput))
	assert.Contains(t, err.Error(), "grid cell")
}

func TestMonteCarlo_ReproducibleForSeed(t *testing.T) {
	cfg := MonteCarloConfig{Samples: 200, GrowthSigma: DefaultGrowthSigma, MarginSigma: DefaultMarginSigma, Seed: 42}
	first, err := NewPipeline(1).MonteCarlo(context.Background(), base(), cfg, 5)
	require.NoError(t, err)
	second, err := NewPipeline(4).MonteCarlo(context.Background(), base(), cfg, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(42), first.Seed)
	assert.Equal(t, first.Values(), second.Values())
	assert.Equal(t, first.Distribution, second.Distribution)
}

func TestMonteCarlo_Distribution(t *testing.T) {
	cfg := DefaultMonteCarloConfig()
	cfg.Samples = 500
	cfg.Seed = 7
	res, err := MonteCarlo(context.Background(), base(), cfg, 5)
	require.NoError(t, err)

	d := res.Distribution
	assert.Equal(t, 500, d.Count)
	assert.LessOrEqual(t, d.Min, d.P5)
	assert.LessOrEqual(t, d.P5, d.P50)
	assert.LessOrEqual(t, d.P50, d.P95)
	assert.LessOrEqual(t, d.P95, d.Max)
	assert.Greater(t, d.StdDev, 0.0)

	direct, err := Evaluate(base(), 5)
	require.NoError(t, err)
	// Mean stays near the base case for modest sigmas.
	assert.InEpsilon(t, direct.EnterpriseValue(), d.Mean, 0.1)
}

func TestMonteCarlo_ZeroSigmaIsBaseCase(t *testing.T) {
	res, err := MonteCarlo(context.Background(), base(), MonteCarloConfig{Samples: 3, Seed: 1}, 4)
	require.NoError(t, err)
	direct, err := Evaluate(base(), 4)
	require.NoError(t, err)
	for _, v := range res.Values() {
		assert.Equal(t, direct.EnterpriseValue(), v)
	}
	assert.InDelta(t, 0.0, res.Distribution.StdDev, 1e-6)
}

func TestMonteCarlo_UnseededPicksSeed(t *testing.T) {
	res, err := MonteCarlo(context.Background(), base(), MonteCarloConfig{Samples: 2, GrowthSigma: 0.01}, 3)
	require.NoError(t, err)
	assert.NotZero(t, res.Seed)
}

func TestMonteCarlo_InvalidConfig(t *testing.T) {
	_, err := MonteCarlo(context.Background(), base(), MonteCarloConfig{Samples: 0}, 3)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))

	_, err = MonteCarlo(context.Background(), base(), MonteCarloConfig{Samples: 5, GrowthSigma: -1}, 3)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))

	_, err = MonteCarlo(context.Background(), base(), MonteCarloConfig{Samples: 5, MarginSigma: math.NaN()}, 3)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))
}

func TestSummarize(t *testing.T) {
	d := Summarize([]float64{5, 1, 3, 2, 4})
	assert.Equal(t, 5, d.Count)
	assert.Equal(t, 3.0, d.Mean)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 5.0, d.Max)
	assert.Equal(t, 3.0, d.P50)
	assert.Equal(t, Distribution{}, Summarize(nil))
}

func TestSweep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(1).RunScenarios(ctx, base(), DefaultScenarios(), 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func roundAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Round(x)
	}
	return out
}
