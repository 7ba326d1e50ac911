package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"financial_model/pkg/config"
	"financial_model/pkg/core/ingest"
	"financial_model/pkg/core/pipeline"
	"financial_model/pkg/core/report"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/core/store"
	"financial_model/pkg/core/validate"
	"financial_model/pkg/logging"
	"financial_model/pkg/models"
)

// inputFlags are shared by every command that runs the engine.
type inputFlags struct {
	overrides string
	years     int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.overrides, "overrides", "", "assumption override file (.hjson, .json, .yaml)")
	cmd.Flags().IntVar(&f.years, "years", 0, "projection horizon in years (default from config)")
}

// exportFlags name optional report files.
type exportFlags struct {
	xlsx string
	html string
	md   string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "write an Excel workbook to this path")
	cmd.Flags().StringVar(&f.html, "html", "", "write an HTML report to this path")
	cmd.Flags().StringVar(&f.md, "md", "", "write a Markdown report to this path")
}

func (f *exportFlags) write(rec *models.RunRecord, logger logging.Logger) error {
	if f.xlsx != "" {
		var buf bytes.Buffer
		if err := report.WriteWorkbook(&buf, rec); err != nil {
			return err
		}
		if err := os.WriteFile(f.xlsx, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.xlsx, err)
		}
		logger.Info("workbook written", logging.String("path", f.xlsx))
	}
	if f.html != "" {
		page, err := report.HTML(rec)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.html, []byte(page), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.html, err)
		}
		logger.Info("html report written", logging.String("path", f.html))
	}
	if f.md != "" {
		if err := os.WriteFile(f.md, []byte(report.Markdown(rec)), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.md, err)
		}
		logger.Info("markdown report written", logging.String("path", f.md))
	}
	return nil
}

// baseRequest loads the optional input source and the overrides and fills a
// request with the configured defaults. With no input every assumption
// comes from defaults and overrides.
func baseRequest(ctx context.Context, cc *CLIContext, args []string, in *inputFlags) (pipeline.Request, error) {
	cfg := cc.Config
	req := pipeline.Request{
		Years:     cfg.Projection.Years,
		Overrides: cfg.Overrides,
		Scenarios: cfg.Scenarios,
		Rates:     cfg.Sensitivity.Rates(),
		Multiples: cfg.Sensitivity.Multiples(),
	}
	if in.years != 0 {
		req.Years = in.years
	}

	if len(args) > 0 {
		loader := ingest.NewLoader(cc.Logger)
		loader.Fetcher = ingest.NewFetcher(cfg.Store.CacheDir)
		res, err := loader.Load(ctx, args[0])
		if err != nil {
			return req, err
		}
		req.Source = res.Source
		req.Historical = res.Historical
	}

	if in.overrides != "" {
		ov, err := config.LoadOverrides(in.overrides)
		if err != nil {
			return req, err
		}
		req.Overrides = req.Overrides.Merge(ov)
	}
	return req, nil
}

func newOrchestrator(cc *CLIContext, repo store.RunRepository) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(repo, cc.Config.Projection.Workers, cc.Logger)
}

func newRunCmd() *cobra.Command {
	var (
		in      inputFlags
		out     exportFlags
		save    bool
		samples int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run the full valuation: statements, DCF, scenarios and sensitivity grid",
		Long:  "Run derives assumptions from the input (.xlsx, .csv, .html, .json path or URL),\nprojects the statements, values them and sweeps scenarios and the rate x multiple grid.\n--samples adds a Monte Carlo simulation.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := baseRequest(cmd.Context(), cc, args, &in)
			if err != nil {
				return err
			}
			if samples > 0 {
				mc := cc.Config.MonteCarlo
				mc.Samples = samples
				if cmd.Flags().Changed("seed") {
					mc.Seed = seed
				}
				req.MonteCarlo = &mc
			}
			req.Save = save

			var repo store.RunRepository
			if save {
				repo = cc.Repository(cmd.Context())
			}
			rec, err := newOrchestrator(cc, repo).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := out.write(rec, cc.Logger); err != nil {
				return err
			}
			return PrintResult(cmd, runView{rec})
		},
	}
	in.register(cmd)
	out.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "persist the run record")
	cmd.Flags().IntVar(&samples, "samples", 0, "Monte Carlo samples (0 skips the simulation)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Monte Carlo seed (0 picks one)")
	return cmd
}

func newScenariosCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "scenarios [input]",
		Short: "Value the Base, Upside and Downside scenarios (or those in the config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := baseRequest(cmd.Context(), cc, args, &in)
			if err != nil {
				return err
			}
			req.SkipSensitivity = true
			rec, err := newOrchestrator(cc, nil).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, scenarioView(rec.Scenarios))
		},
	}
	in.register(cmd)
	return cmd
}

func newSensitivityCmd() *cobra.Command {
	var (
		in                            inputFlags
		rateStart, rateStop, rateStep float64
		multMin, multMax              int
	)
	cmd := &cobra.Command{
		Use:   "sensitivity [input]",
		Short: "Enterprise value across discount rates and exit multiples",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := baseRequest(cmd.Context(), cc, args, &in)
			if err != nil {
				return err
			}
			s := cc.Config.Sensitivity
			flags := cmd.Flags()
			if flags.Changed("rate-start") {
				s.RateStart = rateStart
			}
			if flags.Changed("rate-stop") {
				s.RateStop = rateStop
			}
			if flags.Changed("rate-step") {
				s.RateStep = rateStep
			}
			if flags.Changed("multiple-min") {
				s.MultipleMin = multMin
			}
			if flags.Changed("multiple-max") {
				s.MultipleMax = multMax
			}
			req.Rates, req.Multiples = s.Rates(), s.Multiples()
			if len(req.Rates) == 0 || len(req.Multiples) == 0 {
				return fmt.Errorf("sensitivity axes are empty (rates %d, multiples %d)", len(req.Rates), len(req.Multiples))
			}
			req.SkipScenarios = true

			rec, err := newOrchestrator(cc, nil).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, gridView{rec.Sensitivity})
		},
	}
	in.register(cmd)
	cmd.Flags().Float64Var(&rateStart, "rate-start", 0.05, "first discount rate")
	cmd.Flags().Float64Var(&rateStop, "rate-stop", 0.20, "last discount rate (inclusive)")
	cmd.Flags().Float64Var(&rateStep, "rate-step", 0.02, "discount rate step")
	cmd.Flags().IntVar(&multMin, "multiple-min", 3, "lowest exit multiple")
	cmd.Flags().IntVar(&multMax, "multiple-max", 8, "highest exit multiple")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	var (
		in      inputFlags
		mcFlags scenario.MonteCarloConfig
	)
	cmd := &cobra.Command{
		Use:     "montecarlo [input]",
		Aliases: []string{"mc"},
		Short:   "Sample growth and margin and summarise the enterprise value distribution",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := baseRequest(cmd.Context(), cc, args, &in)
			if err != nil {
				return err
			}
			mc := cc.Config.MonteCarlo
			flags := cmd.Flags()
			if flags.Changed("samples") {
				mc.Samples = mcFlags.Samples
			}
			if flags.Changed("seed") {
				mc.Seed = mcFlags.Seed
			}
			if flags.Changed("growth-sigma") {
				mc.GrowthSigma = mcFlags.GrowthSigma
			}
			if flags.Changed("margin-sigma") {
				mc.MarginSigma = mcFlags.MarginSigma
			}
			req.MonteCarlo = &mc
			req.SkipScenarios, req.SkipSensitivity = true, true

			rec, err := newOrchestrator(cc, nil).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, monteCarloView{rec.MonteCarlo})
		},
	}
	in.register(cmd)
	cmd.Flags().IntVar(&mcFlags.Samples, "samples", scenario.DefaultSamples, "number of samples")
	cmd.Flags().Int64Var(&mcFlags.Seed, "seed", 0, "random seed (0 picks one and reports it)")
	cmd.Flags().Float64Var(&mcFlags.GrowthSigma, "growth-sigma", scenario.DefaultGrowthSigma, "std dev of revenue growth")
	cmd.Flags().Float64Var(&mcFlags.MarginSigma, "margin-sigma", scenario.DefaultMarginSigma, "std dev of margin")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		in        inputFlags
		tolerance float64
	)
	cmd := &cobra.Command{
		Use:   "check [input]",
		Short: "Project the statements and verify the accounting identities year by year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := baseRequest(cmd.Context(), cc, args, &in)
			if err != nil {
				return err
			}
			req.SkipScenarios, req.SkipSensitivity = true, true

			o := newOrchestrator(cc, nil)
			o.SetValidationConfig(pipeline.ValidationConfig{Tolerance: tolerance})
			rec, err := o.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, checkView{rec.Checks}); err != nil {
				return err
			}
			if !rec.Checks.AllPassed {
				return fmt.Errorf("linkage check failed: %d issue(s)", len(rec.Checks.Failures()))
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().Float64Var(&tolerance, "tolerance", validate.DefaultTolerance, "absolute tolerance per identity")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out exportFlags
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a stored run as a workbook, HTML or Markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if out.xlsx == "" && out.html == "" && out.md == "" {
				return fmt.Errorf("nothing to export: pass --xlsx, --html or --md")
			}
			rec, err := cc.Repository(cmd.Context()).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.write(rec, cc.Logger)
		},
	}
	out.register(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			runs, err := cc.Repository(cmd.Context()).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, listView(runs))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 = all)")
	return cmd
}
