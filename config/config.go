// Package config loads application configuration from an optional YAML file
// with environment-variable overrides. Defaults implement the standard
// circulation policy, so a missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"library-lending/library"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Loans    LoanConfig     `yaml:"loans"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoanConfig holds the circulation policy knobs.
type LoanConfig struct {
	MaxActiveLoans  int     `yaml:"max_active_loans"`
	StudentLoanDays int     `yaml:"student_loan_days"`
	TeacherLoanDays int     `yaml:"teacher_loan_days"`
	DailyFineRate   float64 `yaml:"daily_fine_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	policy := library.DefaultLoanPolicy()
	return &Config{
		Database: DatabaseConfig{Path: "library.db"},
		Loans: LoanConfig{
			MaxActiveLoans:  policy.MaxActiveLoans,
			StudentLoanDays: policy.StudentLoanDays,
			TeacherLoanDays: policy.TeacherLoanDays,
			DailyFineRate:   policy.DailyFineRate,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if it
// exists, then environment overrides. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Database.Path = getEnv("LIBRARY_DB_PATH", cfg.Database.Path)
	cfg.Loans.MaxActiveLoans = getIntEnv("LIBRARY_MAX_ACTIVE_LOANS", cfg.Loans.MaxActiveLoans)
	cfg.Loans.StudentLoanDays = getIntEnv("LIBRARY_STUDENT_LOAN_DAYS", cfg.Loans.StudentLoanDays)
	cfg.Loans.TeacherLoanDays = getIntEnv("LIBRARY_TEACHER_LOAN_DAYS", cfg.Loans.TeacherLoanDays)
	cfg.Loans.DailyFineRate = getFloatEnv("LIBRARY_DAILY_FINE_RATE", cfg.Loans.DailyFineRate)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Loans.MaxActiveLoans < 1 {
		return fmt.Errorf("max active loans must be at least 1, got %d", c.Loans.MaxActiveLoans)
	}
	if c.Loans.StudentLoanDays < 1 || c.Loans.TeacherLoanDays < 1 {
		return fmt.Errorf("loan durations must be at least 1 day")
	}
	if c.Loans.DailyFineRate < 0 {
		return fmt.Errorf("daily fine rate cannot be negative, got %v", c.Loans.DailyFineRate)
	}
	return nil
}

// LoanPolicy converts the loan section into the policy the engine consumes.
func (c *Config) LoanPolicy() library.LoanPolicy {
	return library.LoanPolicy{
		MaxActiveLoans:  c.Loans.MaxActiveLoans,
		StudentLoanDays: c.Loans.StudentLoanDays,
		TeacherLoanDays: c.Loans.TeacherLoanDays,
		DailyFineRate:   c.Loans.DailyFineRate,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
