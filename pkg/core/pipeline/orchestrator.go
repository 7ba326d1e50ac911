// Package pipeline runs one complete valuation: derive assumptions from
// historical data, apply overrides, project, value, sweep and check, then
// optionally persist the resulting run record.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/store"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/logging"
	"financial_model/pkg/models"
)

// DefaultYears is the horizon used when a request does not name one.
const DefaultYears = 5

// ValidationConfig controls the post-projection linkage checks.
type ValidationConfig struct {
	EnableStrictValidation bool    // If true, a failed check stops the run
	Tolerance              float64 // Allowed absolute gap per identity
}

// Request describes one run.
type Request struct {
	Source     string
	Historical historical.Set
	Overrides  assumption.Overrides
	Years      int // 0 means DefaultYears

	Scenarios []scenario.Scenario // nil means DefaultScenarios
	Rates     scenario.Axis       // nil means DefaultRateAxis
	Multiples scenario.Axis       // nil means DefaultMultipleAxis

	SkipScenarios   bool
	SkipSensitivity bool
	MonteCarlo      *scenario.MonteCarloConfig // nil skips the simulation

	Save bool
}

// Orchestrator manages the end-to-end flow:
// Derive -> Overrides -> Project/Value -> Scenarios -> Grid -> Monte Carlo -> Checks -> Storage
type Orchestrator struct {
	sweeps           *scenario.Pipeline
	repo             store.RunRepository
	validationConfig ValidationConfig
	logger           logging.Logger
}

// NewOrchestrator creates an orchestrator. repo may be nil when runs are
// never saved; workers bounds the sweep pool (0 means GOMAXPROCS).
func NewOrchestrator(repo store.RunRepository, workers int, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		sweeps: scenario.NewPipeline(workers),
		repo:   repo,
		validationConfig: ValidationConfig{
			EnableStrictValidation: false, // Default: Log warnings but proceed
			Tolerance:              validate.DefaultTolerance,
		},
		logger: logger.Named("pipeline"),
	}
}

// SetRepository allows injecting a custom repository (e.g., for testing).
func (o *Orchestrator) SetRepository(repo store.RunRepository) {
	o.repo = repo
}

// SetValidationConfig updates the validation configuration
func (o *Orchestrator) SetValidationConfig(config ValidationConfig) {
	o.validationConfig = config
}

// Run executes the full pipeline for one request and returns the record.
// Engine failures keep their modelerr kind through the wrapping.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.RunRecord, error) {
	start := time.Now()
	years := req.Years
	if years == 0 {
		years = DefaultYears
	}
	log := o.logger.With(logging.String("source", req.Source), logging.Int("years", years))

	// 1. Assumptions
	base, err := assumption.Derive(req.Historical)
	if err != nil {
		return nil, fmt.Errorf("derive assumptions: %w", err)
	}
	if !req.Overrides.IsEmpty() {
		base, err = base.Apply(req.Overrides)
		if err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	// 2. Base case
	out, err := scenario.Evaluate(base, years)
	if err != nil {
		return nil, fmt.Errorf("base case: %w", err)
	}
	rec := &models.RunRecord{
		Source:      req.Source,
		Years:       years,
		Historical:  req.Historical,
		Assumptions: base,
		Statements:  out.Statements,
		Valuation:   out.DCF,
	}
	log.Info("base case valued", logging.Float64("enterprise_value", rec.EnterpriseValue()))

	// 3. Sweeps
	if !req.SkipScenarios {
		scs := req.Scenarios
		if scs == nil {
			scs = scenario.DefaultScenarios()
		}
		results, err := o.sweeps.RunScenarios(ctx, base, scs, years)
		if err != nil {
			return nil, fmt.Errorf("scenarios: %w", err)
		}
		rec.Scenarios = models.NewScenarioValues(results)
	}

	if !req.SkipSensitivity {
		rates, multiples := req.Rates, req.Multiples
		if rates == nil {
			rates = scenario.DefaultRateAxis()
		}
		if multiples == nil {
			multiples = scenario.DefaultMultipleAxis()
		}
		grid, err := o.sweeps.SensitivityGrid(ctx, base, rates, multiples, years)
		if err != nil {
			return nil, fmt.Errorf("sensitivity: %w", err)
		}
		rec.Sensitivity = grid
	}

	if req.MonteCarlo != nil {
		mc, err := o.sweeps.MonteCarlo(ctx, base, *req.MonteCarlo, years)
		if err != nil {
			return nil, fmt.Errorf("monte carlo: %w", err)
		}
		rec.MonteCarlo = models.NewMonteCarloSummary(mc)
		log.Info("monte carlo complete",
			logging.Int("samples", mc.Distribution.Count),
			logging.Int64("seed", mc.Seed),
			logging.Float64("p50", mc.Distribution.P50))
	}

	// 4. Linkage checks
	report := validate.CheckStatements(rec.Statements, o.validationConfig.Tolerance)
	rec.Checks = report
	if !report.AllPassed {
		failures := report.Failures()
		if o.validationConfig.EnableStrictValidation {
			return nil, fmt.Errorf("linkage check failed: %v", failures)
		}
		log.Warn("linkage check failed", logging.Any("failures", failures))
	}

	// 5. Storage
	if req.Save {
		if o.repo == nil {
			return nil, fmt.Errorf("storage failed: no repository configured")
		}
		if err := o.repo.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("storage failed: %w", err)
		}
	}

	log.Info("run complete", logging.String("id", rec.ID), logging.Duration("elapsed", time.Since(start)))
	return rec, nil
}
