package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the config file written by init.
const FileName = "cryptotax.yaml"

// Config represents the top-level cryptotax.yaml configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Reports     ReportsConfig     `yaml:"reports"`
	Calculation CalculationConfig `yaml:"calculation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Store       StoreConfig       `yaml:"store"`
	Git         GitConfig         `yaml:"git"`
}

// DataConfig locates the per-asset transaction files.
type DataConfig struct {
	Dir            string   `yaml:"dir"`
	Format         string   `yaml:"format"`          // parser name, e.g. "normalized"
	SkipCurrencies []string `yaml:"skip_currencies"` // fiat files left out of the calculation
}

// ReportsConfig controls where gains reports are written.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// CalculationConfig tunes the gains calculation.
type CalculationConfig struct {
	Epsilon string `yaml:"epsilon"` // pool shortfall tolerated as rounding drift
	Workers int    `yaml:"workers"` // assets computed in parallel
}

// LoggingConfig controls the process logger and the run log.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	RunLog string `yaml:"run_log"`
}

// StoreConfig locates the SQLite run store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// GitConfig controls committing regenerated reports.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a cryptotax.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:            filepath.Join("data", "asset_transactions"),
			Format:         "normalized",
			SkipCurrencies: []string{"GBP", "EUR"},
		},
		Reports: ReportsConfig{
			Dir: "reports",
		},
		Calculation: CalculationConfig{
			Epsilon: "0.00000001",
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			RunLog: filepath.Join("logs", "run-log.csv"),
		},
		Store: StoreConfig{
			Path: filepath.Join("logs", "cryptotax.db"),
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "cryptotax",
			AuthorEmail: "reports@cryptotax.local",
		},
	}
}

// Epsilon returns the parsed rounding tolerance.
func (c *Config) Epsilon() (decimal.Decimal, error) {
	eps, err := decimal.NewFromString(c.Calculation.Epsilon)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing epsilon %q: %w", c.Calculation.Epsilon, err)
	}
	if eps.IsNegative() {
		return decimal.Zero, fmt.Errorf("epsilon %s must not be negative", eps)
	}
	return eps, nil
}

// Validate checks the config for values the commands cannot use. formats
// lists the parser names available; an empty list skips the format check.
func (c *Config) Validate(formats []string) error {
	var errs []error

	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	if c.Reports.Dir == "" {
		errs = append(errs, errors.New("reports.dir is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if len(formats) > 0 && !contains(formats, c.Data.Format) {
		errs = append(errs, fmt.Errorf("data.format %q is not one of %v", c.Data.Format, formats))
	}
	if _, err := c.Epsilon(); err != nil {
		errs = append(errs, fmt.Errorf("calculation.epsilon: %w", err))
	}
	if c.Calculation.Workers < 1 {
		errs = append(errs, fmt.Errorf("calculation.workers must be at least 1, got %d", c.Calculation.Workers))
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	if c.Git.AutoCommit && (c.Git.AuthorName == "" || c.Git.AuthorEmail == "") {
		errs = append(errs, errors.New("git.author_name and git.author_email are required with git.auto_commit"))
	}

	return errors.Join(errs...)
}

// Resolve returns p relative to root unless it is already absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
