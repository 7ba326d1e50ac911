// Package scenario drives repeated {project, value} runs over perturbed
// assumption sets: named scenarios, the discount-rate x exit-multiple grid
// and Monte Carlo sampling of growth and margin.
//
// Every run receives its own copy of the base assumptions. Sweeps may be
// spread across a bounded worker pool; each run writes only its own result
// slot, so output order always matches the sequential order.
package scenario

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/projection"
	"financial_model/pkg/core/valuation"
)

// Outcome is the result of one full pipeline run.
type Outcome struct {
	Assumptions *assumption.AssumptionSet `json:"assumptions"`
	Statements  *projection.Statements    `json:"statements"`
	DCF         valuation.DCFResult       `json:"dcf"`
}

// EnterpriseValue is a shortcut for o.DCF.EnterpriseValue.
func (o *Outcome) EnterpriseValue() float64 { return o.DCF.EnterpriseValue }

// Evaluate projects a over years and values the resulting cash flows with
// the set's own discount rate and exit multiple.
func Evaluate(a *assumption.AssumptionSet, years int) (*Outcome, error) {
	st, err := projection.Project(a, years)
	if err != nil {
		return nil, err
	}
	dcf, err := valuation.CalculateDCF(valuation.DCFInput{
		CashFlows:    st.CashFlows(),
		DiscountRate: a.DiscountRate,
		ExitMultiple: a.ExitMultiple,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Assumptions: a, Statements: st, DCF: dcf}, nil
}

// Pipeline runs sweeps over a base assumption set.
type Pipeline struct {
	// Workers bounds concurrent runs. 0 means GOMAXPROCS, 1 is sequential.
	Workers int
}

// NewPipeline returns a Pipeline with the given worker bound.
func NewPipeline(workers int) *Pipeline {
	return &Pipeline{Workers: workers}
}

func (p *Pipeline) limit() int {
	if p == nil || p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}

// forEach calls fn(ctx, i) for i in [0, n) on the worker pool and returns the
// first error. Remaining work is skipped once ctx is done.
func (p *Pipeline) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
