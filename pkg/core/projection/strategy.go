// Package projection implements the statement projector.
// Line items are driven by pluggable strategies: revenue grows from the prior
// year, cost is a margin of the same year's revenue, and the remaining lines
// follow from the accounting identities of the simplified model.
package projection

import (
	"fmt"
	"math"
)

// Context is what a strategy sees when projecting one line for one year.
type Context struct {
	Year  int                // 1-based
	Prior float64            // this line's value in the previous year
	Lines map[string]float64 // same-year values of lines already projected
}

// ProjectionStrategy projects a single statement line year by year.
type ProjectionStrategy interface {
	Name() string
	Calculate(ctx Context) (float64, error)
	// Validate reports whether ctx carries what Calculate needs.
	Validate(ctx Context) error
}

// GrowthStrategy compounds Prior by GrowthRate. Year 1 returns Base
// unchanged, so Value(t) = Base * (1 + GrowthRate)^(t-1).
type GrowthStrategy struct {
	Base       float64 `json:"base"`
	GrowthRate float64 `json:"growth_rate"`
}

func (s *GrowthStrategy) Name() string { return "GrowthRate" }

func (s *GrowthStrategy) Validate(ctx Context) error {
	if ctx.Year < 1 {
		return fmt.Errorf("GrowthStrategy requires Year >= 1, got %d", ctx.Year)
	}
	if math.IsNaN(ctx.Prior) || math.IsInf(ctx.Prior, 0) {
		return fmt.Errorf("GrowthStrategy requires a finite prior value, got %v", ctx.Prior)
	}
	return nil
}

func (s *GrowthStrategy) Calculate(ctx Context) (float64, error) {
	if err := s.Validate(ctx); err != nil {
		return 0, err
	}
	if ctx.Year == 1 {
		return s.Base, nil
	}
	return ctx.Prior * (1 + s.GrowthRate), nil
}

// MarginStrategy takes Margin of another line in the same year,
// e.g. cost = revenue × margin.
type MarginStrategy struct {
	Margin   float64 `json:"margin"`
	BaseLine string  `json:"base_line"`
}

func (s *MarginStrategy) Name() string { return "Margin" }

func (s *MarginStrategy) Validate(ctx Context) error {
	if _, ok := ctx.Lines[s.BaseLine]; !ok {
		return fmt.Errorf("MarginStrategy needs %q projected first", s.BaseLine)
	}
	return nil
}

func (s *MarginStrategy) Calculate(ctx Context) (float64, error) {
	if err := s.Validate(ctx); err != nil {
		return 0, err
	}
	return ctx.Lines[s.BaseLine] * s.Margin, nil
}

// ConstantStrategy holds a line at a fixed value every year.
type ConstantStrategy struct {
	Value float64 `json:"value"`
}

func (s *ConstantStrategy) Name() string { return "Constant" }

func (s *ConstantStrategy) Validate(ctx Context) error { return nil }

func (s *ConstantStrategy) Calculate(ctx Context) (float64, error) {
	return s.Value, nil
}
