package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Database.Path != "library.db" {
		t.Errorf("default db path: %q", cfg.Database.Path)
	}
	if cfg.Loans.MaxActiveLoans != 3 {
		t.Errorf("default loan limit: %d", cfg.Loans.MaxActiveLoans)
	}
	if cfg.Loans.StudentLoanDays != 7 || cfg.Loans.TeacherLoanDays != 14 {
		t.Errorf("default durations: %d/%d", cfg.Loans.StudentLoanDays, cfg.Loans.TeacherLoanDays)
	}
	if cfg.Loans.DailyFineRate != 1.00 {
		t.Errorf("default fine rate: %v", cfg.Loans.DailyFineRate)
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.Loans.MaxActiveLoans != 3 {
		t.Errorf("defaults not applied: %+v", cfg.Loans)
	}
}

func TestYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	data := []byte("database:\n  path: /tmp/other.db\nloans:\n  max_active_loans: 5\n  daily_fine_rate: 0.5\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("db path override: %q", cfg.Database.Path)
	}
	if cfg.Loans.MaxActiveLoans != 5 {
		t.Errorf("loan limit override: %d", cfg.Loans.MaxActiveLoans)
	}
	if cfg.Loans.DailyFineRate != 0.5 {
		t.Errorf("fine rate override: %v", cfg.Loans.DailyFineRate)
	}
	// Untouched keys keep their defaults.
	if cfg.Loans.StudentLoanDays != 7 {
		t.Errorf("student days should stay default: %d", cfg.Loans.StudentLoanDays)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte("loans:\n  max_active_loans: 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LIBRARY_MAX_ACTIVE_LOANS", "2")
	t.Setenv("LIBRARY_DB_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Loans.MaxActiveLoans != 2 {
		t.Errorf("env should win: %d", cfg.Loans.MaxActiveLoans)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("env db path: %q", cfg.Database.Path)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Setenv("LIBRARY_MAX_ACTIVE_LOANS", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("zero loan limit should be rejected")
	}
}

func TestLoanPolicyConversion(t *testing.T) {
	cfg := Default()
	policy := cfg.LoanPolicy()
	if policy.MaxActiveLoans != cfg.Loans.MaxActiveLoans ||
		policy.StudentLoanDays != cfg.Loans.StudentLoanDays ||
		policy.TeacherLoanDays != cfg.Loans.TeacherLoanDays ||
		policy.DailyFineRate != cfg.Loans.DailyFineRate {
		t.Errorf("policy mismatch: %+v vs %+v", policy, cfg.Loans)
	}
}
