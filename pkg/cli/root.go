// Package cli implements the finmodel command tree: run a full valuation
// from a workbook, CSV, HTML or JSON source, or one of its parts (scenarios,
// sensitivity grid, Monte Carlo, linkage check), and export stored runs.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"financial_model/pkg/config"
	"financial_model/pkg/core/store"
	"financial_model/pkg/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Workers      int
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
}

// NewRootCommand creates the root command with global flags and every subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "finmodel",
		Short:   "Project a three-statement model and value it by DCF",
		Long:    "finmodel derives assumptions from historical statements, projects revenue, costs,\ncash flow and a simple balance sheet, and values the result with an exit-multiple DCF.\nScenario, sensitivity and Monte Carlo sweeps re-run the whole pipeline.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.IntVar(&opts.Workers, "workers", -1, "sweep worker bound (0 = all CPUs, 1 = sequential); overrides config")

	cmd.AddCommand(
		newRunCmd(),
		newScenariosCmd(),
		newSensitivityCmd(),
		newMonteCarloCmd(),
		newCheckCmd(),
		newExportCmd(),
		newListCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported output format %q (want text or json)", opts.OutputFormat)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Workers >= 0 {
		cfg.Projection.Workers = opts.Workers
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Repository opens the run store: Postgres when a database URL is configured
// and reachable, the file store under the cache directory otherwise.
func (c *CLIContext) Repository(ctx context.Context) *store.RunRepo {
	if c.Config.Store.DatabaseURL != "" {
		if err := store.InitDB(ctx, c.Config.Store.DatabaseURL); err != nil {
			c.Logger.Warn("database unavailable, using file store", logging.Err(err))
		} else if err := store.EnsureSchema(ctx, store.GetPool()); err != nil {
			c.Logger.Warn("schema setup failed, using file store", logging.Err(err))
			return store.NewRunRepo(nil, c.Config.Store.RunDir(), c.Logger)
		}
	}
	return store.NewRunRepo(store.GetPool(), c.Config.Store.RunDir(), c.Logger)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	defer store.Close()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}
