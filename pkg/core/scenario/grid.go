package scenario

import (
	"context"
	"fmt"
	"math"

	"financial_model/pkg/core/assumption"
)

// Axis is an ordered sequence of parameter values.
type Axis []float64

// StepAxis returns start, start+step, ... up to and including stop. Each
// value is computed as start + i*step so no rounding drift accumulates.
func StepAxis(start, stop, step float64) Axis {
	if step <= 0 || stop < start || math.IsNaN(start) || math.IsNaN(stop) {
		return Axis{}
	}
	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	out := make(Axis, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// RateAxis is the discount-rate axis. RateAxis(0.05, 0.20, 0.02) yields the
// eight rates 0.05 through 0.19.
func RateAxis(start, stop, step float64) Axis { return StepAxis(start, stop, step) }

// MultipleAxis is the integer exit-multiple axis from lo to hi inclusive.
func MultipleAxis(lo, hi int) Axis { return StepAxis(float64(lo), float64(hi), 1) }

// DefaultRateAxis and DefaultMultipleAxis give the 8 x 6 reference grid.
func DefaultRateAxis() Axis     { return RateAxis(0.05, 0.20, 0.02) }
func DefaultMultipleAxis() Axis { return MultipleAxis(3, 8) }

// Cell is one (rate, multiple) valuation.
type Cell struct {
	DiscountRate    float64 `json:"discount_rate"`
	ExitMultiple    float64 `json:"exit_multiple"`
	EnterpriseValue float64 `json:"enterprise_value"`
}

// Grid is the sensitivity table, stored row-major: rate, then multiple.
type Grid struct {
	Rates     Axis   `json:"rates"`
	Multiples Axis   `json:"multiples"`
	Cells     []Cell `json:"cells"`
}

// At returns the cell for rate index i and multiple index j.
func (g *Grid) At(i, j int) Cell { return g.Cells[i*len(g.Multiples)+j] }

// Matrix returns the enterprise values as rows of rates.
func (g *Grid) Matrix() [][]float64 {
	out := make([][]float64, len(g.Rates))
	for i := range g.Rates {
		out[i] = make([]float64, len(g.Multiples))
		for j := range g.Multiples {
			out[i][j] = g.At(i, j).EnterpriseValue
		}
	}
	return out
}

// SensitivityGrid re-runs the full pipeline for every (rate, multiple) pair
// with those two values overriding base.
func (p *Pipeline) SensitivityGrid(ctx context.Context, base *assumption.AssumptionSet, rates, multiples Axis, years int) (*Grid, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		Rates:     append(Axis(nil), rates...),
		Multiples: append(Axis(nil), multiples...),
		Cells:     make([]Cell, len(rates)*len(multiples)),
	}
	cols := len(multiples)
	err := p.forEach(ctx, len(g.Cells), func(_ context.Context, k int) error {
		r, m := rates[k/cols], multiples[k%cols]
		a, err := base.Apply(assumption.Overrides{
			DiscountRate: assumption.Float(r),
			ExitMultiple: assumption.Float(m),
		})
		if err != nil {
			return fmt.Errorf("grid cell (rate=%.4f, multiple=%.2f): %w", r, m, err)
		}
		out, err := Evaluate(a, years)
		if err != nil {
			return fmt.Errorf("grid cell (rate=%.4f, multiple=%.2f): %w", r, m, err)
		}
		g.Cells[k] = Cell{DiscountRate: r, ExitMultiple: m, EnterpriseValue: out.EnterpriseValue()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// SensitivityGrid runs the grid on a default Pipeline.
func SensitivityGrid(ctx context.Context, base *assumption.AssumptionSet, rates, multiples Axis, years int) (*Grid, error) {
	return NewPipeline(0).SensitivityGrid(ctx, base, rates, multiples, years)
}
