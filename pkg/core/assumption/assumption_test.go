package assumption

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/modelerr"
)

func TestDerive_EmptyHistoryUsesDefaults(t *testing.T) {
	a, err := Derive(historical.Set{})
	require.NoError(t, err)

	assert.Equal(t, 1_000_000.0, a.StartingRevenue)
	assert.Equal(t, 0.10, a.RevenueGrowth)
	assert.Equal(t, 0.40, a.Margin)
	assert.Equal(t, 0.0, a.Debt)
	assert.Equal(t, 0.05, a.InterestRate)
	assert.Equal(t, 0.10, a.DiscountRate)
	assert.Equal(t, 5.0, a.ExitMultiple)

	for _, k := range Keys {
		assert.Equal(t, SourceDefault, a.Sources[k], "key %s", k)
	}
	assert.NoError(t, a.Validate())
}

func TestDerive_FromHistory(t *testing.T) {
	h := historical.Set{
		historical.Revenue:     historical.Series{f(800000), nil, f(1000000), f(1200000)},
		historical.CostOfSales: historical.Values(300000, 540000),
		historical.Debt:        historical.Series{f(250000), nil},
		historical.Cash:        historical.Values(10, 20),
	}
	a, err := Derive(h)
	require.NoError(t, err)

	assert.Equal(t, 1200000.0, a.StartingRevenue)
	assert.InDelta(t, 0.20, a.RevenueGrowth, 1e-12)
	assert.InDelta(t, 0.45, a.Margin, 1e-12)
	assert.Equal(t, 250000.0, a.Debt)
	assert.Equal(t, SourceDerived, a.Sources[KeyRevenueGrowth])
	assert.Equal(t, SourceDefault, a.Sources[KeyDiscountRate])
	assert.Equal(t, []float64{10, 20}, a.HistoricalCash.Present())
}

func TestDerive_SingleRevenueObservation(t *testing.T) {
	a, err := Derive(historical.Set{historical.Revenue: historical.Values(500000)})
	require.NoError(t, err)
	assert.Equal(t, 500000.0, a.StartingRevenue)
	assert.Equal(t, 0.10, a.RevenueGrowth)
	assert.Equal(t, SourceDefault, a.Sources[KeyRevenueGrowth])
}

func TestDerive_DecliningRevenueIsNotClamped(t *testing.T) {
	a, err := Derive(historical.Set{historical.Revenue: historical.Values(1000, 900)})
	require.NoError(t, err)
	assert.InDelta(t, -0.10, a.RevenueGrowth, 1e-12)
}

func TestDerive_MarginAboveOneIsAccepted(t *testing.T) {
	a, err := Derive(historical.Set{
		historical.Revenue:     historical.Values(1000),
		historical.CostOfSales: historical.Values(1500),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, a.Margin, 1e-12)
}

func TestDerive_ZeroDenominatorsFallBack(t *testing.T) {
	a, err := Derive(historical.Set{
		historical.Revenue:     historical.Values(0, 0),
		historical.CostOfSales: historical.Values(100),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.StartingRevenue)
	assert.Equal(t, DefaultRevenueGrowth, a.RevenueGrowth)
	assert.Equal(t, DefaultMargin, a.Margin)
}

func TestDerive_NonFiniteValueIsMalformed(t *testing.T) {
	_, err := Derive(historical.Set{historical.Revenue: historical.Values(1, math.NaN())})
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrMalformedInput))
}

func TestApply_OverridesWinAndLeaveBaseUntouched(t *testing.T) {
	base := Defaults()
	out, err := base.Apply(Overrides{DiscountRate: Float(0.12), ExitMultiple: Float(7)})
	require.NoError(t, err)

	assert.Equal(t, 0.12, out.DiscountRate)
	assert.Equal(t, 7.0, out.ExitMultiple)
	assert.Equal(t, SourceOverride, out.Sources[KeyDiscountRate])
	assert.Equal(t, 0.10, base.DiscountRate)
	assert.Equal(t, SourceDefault, base.Sources[KeyDiscountRate])
}

func TestApply_RejectsNonFinite(t *testing.T) {
	_, err := Defaults().Apply(Overrides{Margin: Float(math.Inf(1))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))
}

func TestOverrides_Merge(t *testing.T) {
	a := Overrides{Margin: Float(0.3), Debt: Float(10)}
	b := Overrides{Margin: Float(0.5)}
	m := a.Merge(b)
	assert.Equal(t, 0.5, *m.Margin)
	assert.Equal(t, 10.0, *m.Debt)
	assert.Nil(t, m.DiscountRate)
	assert.False(t, m.IsEmpty())
	assert.True(t, Overrides{}.IsEmpty())
}

func TestClone_IsIndependent(t *testing.T) {
	base := Defaults()
	base.HistoricalCash = historical.Values(1, 2)
	cp := base.Clone()

	cp.RevenueGrowth = 0.9
	cp.Sources[KeyRevenueGrowth] = SourceOverride
	*cp.HistoricalCash[0] = 99

	assert.Equal(t, 0.10, base.RevenueGrowth)
	assert.Equal(t, SourceDefault, base.Sources[KeyRevenueGrowth])
	assert.Equal(t, 1.0, *base.HistoricalCash[0])
}

func TestValidate_MissingSource(t *testing.T) {
	a := Defaults()
	delete(a.Sources, KeyMargin)
	err := a.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))

	var nilSet *AssumptionSet
	assert.Error(t, nilSet.Validate())
}

func TestFromJSON(t *testing.T) {
	a, err := FromJSON([]byte(`{"starting_revenue":1000000,"revenue_growth":0.1,"margin":0.4,
		"debt":0,"interest_rate":0.05,"discount_rate":0.1,"exit_multiple":5}`))
	require.NoError(t, err)
	assert.Equal(t, 0.4, a.Margin)

	_, err = FromJSON([]byte(`{"starting_revenue":1000000,"revenue_growth":0.1}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelerr.ErrInvalidAssumptions))
}

func TestTable_ListsEveryKey(t *testing.T) {
	rows := Defaults().Table()
	require.Len(t, rows, len(Keys))
	assert.Equal(t, KeyStartingRevenue, rows[0].Key)
	assert.Equal(t, 1_000_000.0, rows[0].Value)
}

func f(v float64) *float64 { return &v }

func TestSet_UnknownKey(t *testing.T) {
	a := Defaults()
	err := a.Set(Key("discount_rat"), 0.2, SourceOverride)
	require.Error(t, err)
	assert.Equal(t, DefaultDiscountRate, a.DiscountRate)
	_, tracked := a.Sources[Key("discount_rat")]
	assert.False(t, tracked)
}

func TestDerive_UnknownRuleKeyFails(t *testing.T) {
	bad := append(append([]rule(nil), rules...), rule{key: Key("exit_multipel"), fallback: 1})
	_, err := derive(nil, bad)
	assert.ErrorContains(t, err, "exit_multipel")
}
