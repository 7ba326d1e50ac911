package valuation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financial_model/pkg/core/modelerr"
)

var concreteFlows = []float64{600_000, 660_000, 726_000}

func TestCalculateDCF_ConcreteValuation(t *testing.T) {
	res, err := CalculateDCF(DCFInput{CashFlows: concreteFlows, DiscountRate: 0.10, ExitMultiple: 5})
	require.NoError(t, err)

	// Each flow discounts to 545,454.55.
	assert.InDelta(t, 1_636_363.64, res.NPV, 0.01)
	assert.InDelta(t, 3_630_000, res.TerminalValue, 1e-6)
	// 3,630,000 / 1.331
	assert.InDelta(t, 2_727_272.73, res.PVTerminal, 0.01)
	assert.InDelta(t, 4_363_636.36, res.EnterpriseValue, 0.01)
	assert.Len(t, res.DiscountFactors, 3)
	assert.InDelta(t, 1/1.331, res.DiscountFactors[2], 1e-12)
}

func TestValue_MatchesBreakdown(t *testing.T) {
	ev, err := Value(concreteFlows, 0.10, 5)
	require.NoError(t, err)
	res, _ := CalculateDCF(DCFInput{CashFlows: concreteFlows, DiscountRate: 0.10, ExitMultiple: 5})
	assert.Equal(t, res.EnterpriseValue, ev)
	assert.Equal(t, res.NPV+res.PVTerminal, ev)
}

func TestValue_Deterministic(t *testing.T) {
	a, _ := Value(concreteFlows, 0.13, 6)
	b, _ := Value(concreteFlows, 0.13, 6)
	assert.Equal(t, a, b)
}

func TestValue_StrictlyDecreasingInDiscountRate(t *testing.T) {
	prev := math.Inf(1)
	for r := 0.0; r <= 0.30; r += 0.01 {
		ev, err := Value(concreteFlows, r, 5)
		require.NoError(t, err)
		assert.Less(t, ev, prev, "rate %.2f", r)
		prev = ev
	}
}

func TestValue_StrictlyIncreasingInExitMultiple(t *testing.T) {
	prev := math.Inf(-1)
	for m := 0.0; m <= 12; m++ {
		ev, err := Value(concreteFlows, 0.10, m)
		require.NoError(t, err)
		assert.Greater(t, ev, prev, "multiple %.0f", m)
		prev = ev
	}
}

func TestValue_NegativeFlowsAreValid(t *testing.T) {
	ev, err := Value([]float64{-100, -200}, 0.10, 5)
	require.NoError(t, err)
	assert.Less(t, ev, 0.0)
}

func TestValue_SingleFlow(t *testing.T) {
	ev, err := Value([]float64{110}, 0.10, 2)
	require.NoError(t, err)
	// 110/1.1 + 220/1.1
	assert.InDelta(t, 300, ev, 1e-9)
}

func TestValue_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		flows []float64
		rate  float64
		mult  float64
	}{
		{"empty", nil, 0.1, 5},
		{"rate minus one", concreteFlows, -1, 5},
		{"rate below minus one", concreteFlows, -1.5, 5},
		{"nan rate", concreteFlows, math.NaN(), 5},
		{"inf multiple", concreteFlows, 0.1, math.Inf(1)},
		{"nan flow", []float64{1, math.NaN()}, 0.1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Value(tt.flows, tt.rate, tt.mult)
			require.Error(t, err)
			assert.True(t, errors.Is(err, modelerr.ErrInvalidValuationInput))
		})
	}
}
