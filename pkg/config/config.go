// Package config loads run settings from a YAML file, .env and FINMODEL_*
// environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/scenario"
	"financial_model/pkg/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FINMODEL_"

// Config is the full settings tree.
type Config struct {
	Projection  ProjectionConfig          `yaml:"projection" json:"projection"`
	Sensitivity SensitivityConfig         `yaml:"sensitivity" json:"sensitivity"`
	MonteCarlo  scenario.MonteCarloConfig `yaml:"monte_carlo" json:"monte_carlo"`
	Scenarios   []scenario.Scenario       `yaml:"scenarios" json:"scenarios"`
	Overrides   assumption.Overrides      `yaml:"overrides" json:"overrides"`
	Log         logging.Config            `yaml:"log" json:"log"`
	Store       StoreConfig               `yaml:"store" json:"store"`
	Server      ServerConfig              `yaml:"server" json:"server"`
}

type ProjectionConfig struct {
	Years   int `yaml:"years" json:"years"`
	Workers int `yaml:"workers" json:"workers"` // 0 = GOMAXPROCS
}

// SensitivityConfig describes the discount-rate x exit-multiple grid.
type SensitivityConfig struct {
	RateStart   float64 `yaml:"rate_start" json:"rate_start"`
	RateStop    float64 `yaml:"rate_stop" json:"rate_stop"`
	RateStep    float64 `yaml:"rate_step" json:"rate_step"`
	MultipleMin int     `yaml:"multiple_min" json:"multiple_min"`
	MultipleMax int     `yaml:"multiple_max" json:"multiple_max"`
}

func (s SensitivityConfig) Rates() scenario.Axis {
	return scenario.RateAxis(s.RateStart, s.RateStop, s.RateStep)
}

func (s SensitivityConfig) Multiples() scenario.Axis {
	return scenario.MultipleAxis(s.MultipleMin, s.MultipleMax)
}

type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" json:"-"`
	CacheDir    string `yaml:"cache_dir" json:"cache_dir"`
}

// RunDir is where the file store keeps run records.
func (s StoreConfig) RunDir() string {
	if s.CacheDir == "" {
		return ""
	}
	return filepath.Join(s.CacheDir, "valuation_runs")
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the reference settings.
func Default() *Config {
	return &Config{
		Projection: ProjectionConfig{Years: 5},
		Sensitivity: SensitivityConfig{
			RateStart:   0.05,
			RateStop:    0.20,
			RateStep:    0.02,
			MultipleMin: 3,
			MultipleMax: 8,
		},
		MonteCarlo: scenario.DefaultMonteCarloConfig(),
		Scenarios:  scenario.DefaultScenarios(),
		Log:        logging.Config{Level: "info", Format: "console"},
		Store:      StoreConfig{CacheDir: ".cache"},
		Server:     ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	loadEnvFile()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Projection.Years < 1 {
		return fmt.Errorf("projection.years must be >= 1, got %d", c.Projection.Years)
	}
	if c.Projection.Workers < 0 {
		return fmt.Errorf("projection.workers must be >= 0, got %d", c.Projection.Workers)
	}
	if c.Sensitivity.RateStep <= 0 || c.Sensitivity.RateStop < c.Sensitivity.RateStart {
		return fmt.Errorf("sensitivity rate axis is empty (start=%v stop=%v step=%v)",
			c.Sensitivity.RateStart, c.Sensitivity.RateStop, c.Sensitivity.RateStep)
	}
	if c.Sensitivity.MultipleMax < c.Sensitivity.MultipleMin {
		return fmt.Errorf("sensitivity multiple axis is empty (min=%d max=%d)",
			c.Sensitivity.MultipleMin, c.Sensitivity.MultipleMax)
	}
	if c.MonteCarlo.Samples < 1 {
		return fmt.Errorf("monte_carlo.samples must be >= 1, got %d", c.MonteCarlo.Samples)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	setInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = n
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok && err == nil {
			n, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	setInt("YEARS", &c.Projection.Years)
	setInt("WORKERS", &c.Projection.Workers)
	setInt("MC_SAMPLES", &c.MonteCarlo.Samples)
	setInt64("MC_SEED", &c.MonteCarlo.Seed)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("CACHE_DIR", &c.Store.CacheDir)
	setString("ADDR", &c.Server.Addr)

	// DATABASE_URL is shared with other tools; the prefixed form wins.
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = v
	}
	setString("DATABASE_URL", &c.Store.DatabaseURL)
	return err
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// loadEnvFile loads the first .env found next to the working directory or
// the executable. A missing file is not an error.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(exeDir, ".env"), filepath.Join(exeDir, "..", ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}
