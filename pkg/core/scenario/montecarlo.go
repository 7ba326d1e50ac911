package scenario

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/modelerr"
)

// Reference volatilities for the growth and margin draws.
const (
	DefaultGrowthSigma = 0.02
	DefaultMarginSigma = 0.03
	DefaultSamples     = 1000
)

// MonteCarloConfig configures a sampling run. Seed 0 picks a time-based seed;
// any other value makes the run reproducible.
type MonteCarloConfig struct {
	Samples     int     `json:"samples" yaml:"samples"`
	GrowthSigma float64 `json:"growth_sigma" yaml:"growth_sigma"`
	MarginSigma float64 `json:"margin_sigma" yaml:"margin_sigma"`
	Seed        int64   `json:"seed" yaml:"seed"`
}

// DefaultMonteCarloConfig returns the reference configuration, unseeded.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		Samples:     DefaultSamples,
		GrowthSigma: DefaultGrowthSigma,
		MarginSigma: DefaultMarginSigma,
	}
}

func (c MonteCarloConfig) validate() error {
	if c.Samples < 1 {
		return modelerr.InvalidAssumptions("montecarlo", "samples must be >= 1").With("samples", c.Samples)
	}
	if !(c.GrowthSigma >= 0) || !(c.MarginSigma >= 0) || math.IsInf(c.GrowthSigma, 0) || math.IsInf(c.MarginSigma, 0) {
		return modelerr.InvalidAssumptions("montecarlo", "sigmas must be finite and >= 0").
			With("growth_sigma", c.GrowthSigma).With("margin_sigma", c.MarginSigma)
	}
	return nil
}

// Sample is one draw and its valuation.
type Sample struct {
	Growth          float64 `json:"growth"`
	Margin          float64 `json:"margin"`
	EnterpriseValue float64 `json:"enterprise_value"`
}

// Distribution summarises the sampled enterprise values.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P5     float64 `json:"p5"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// Summarize computes the distribution of values. values is not modified.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	d := Distribution{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		P5:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// MonteCarloResult holds every sample plus the summary.
type MonteCarloResult struct {
	Config       MonteCarloConfig `json:"config"`
	Seed         int64            `json:"seed"` // the seed actually used
	Samples      []Sample         `json:"samples"`
	Distribution Distribution     `json:"distribution"`
}

// Values returns the sampled enterprise values in draw order.
func (r *MonteCarloResult) Values() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.EnterpriseValue
	}
	return out
}

// MonteCarlo draws growth ~ N(base growth, GrowthSigma) and
// margin ~ N(base margin, MarginSigma) per sample and values each draw.
// All draws are taken from the seeded source before any evaluation starts,
// so a fixed seed gives identical results for any worker count.
func (p *Pipeline) MonteCarlo(ctx context.Context, base *assumption.AssumptionSet, cfg MonteCarloConfig, years int) (*MonteCarloResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	samples := make([]Sample, cfg.Samples)
	for i := range samples {
		samples[i].Growth = base.RevenueGrowth + cfg.GrowthSigma*rng.NormFloat64()
		samples[i].Margin = base.Margin + cfg.MarginSigma*rng.NormFloat64()
	}

	err := p.forEach(ctx, len(samples), func(_ context.Context, i int) error {
		a, err := base.Apply(assumption.Overrides{
			RevenueGrowth: assumption.Float(samples[i].Growth),
			Margin:        assumption.Float(samples[i].Margin),
		})
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		out, err := Evaluate(a, years)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		samples[i].EnterpriseValue = out.EnterpriseValue()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &MonteCarloResult{Config: cfg, Seed: seed, Samples: samples}
	res.Distribution = Summarize(res.Values())
	return res, nil
}

// MonteCarlo runs the simulation on a default Pipeline.
func MonteCarlo(ctx context.Context, base *assumption.AssumptionSet, cfg MonteCarloConfig, years int) (*MonteCarloResult, error) {
	return NewPipeline(0).MonteCarlo(ctx, base, cfg, years)
}
