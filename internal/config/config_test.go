package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ReconcileInterval != 10*time.Second {
		t.Errorf("expected 10s reconcile interval, got %s", cfg.ReconcileInterval)
	}
	if cfg.FailureCooldown != 5*time.Minute {
		t.Errorf("expected 5m failure cooldown, got %s", cfg.FailureCooldown)
	}
	if cfg.StartRetries != 3 || cfg.StartRetryDelay != 8*time.Second {
		t.Errorf("unexpected start retry defaults: %d / %s", cfg.StartRetries, cfg.StartRetryDelay)
	}
	if cfg.SendRateRPS != 25 || cfg.SendRateBurst != 30 {
		t.Errorf("unexpected send rate defaults: %v / %d", cfg.SendRateRPS, cfg.SendRateBurst)
	}
	if cfg.RequestDedupeWindow != time.Hour {
		t.Errorf("expected 60m dedupe window, got %s", cfg.RequestDedupeWindow)
	}
	if cfg.LockPath == "" {
		t.Errorf("expected a default lock path")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "30")
	t.Setenv("SEND_RATE_RPS", "12.5")
	t.Setenv("DISPATCH_WORKERS_PER_TENANT", "4")
	t.Setenv("START_RETRIES", "not-a-number")

	cfg := Load()
	if cfg.ReconcileInterval != 30*time.Second {
		t.Errorf("expected env override, got %s", cfg.ReconcileInterval)
	}
	if cfg.SendRateRPS != 12.5 {
		t.Errorf("expected float override, got %v", cfg.SendRateRPS)
	}
	if cfg.DispatchWorkers != 4 {
		t.Errorf("expected worker override, got %d", cfg.DispatchWorkers)
	}
	if cfg.StartRetries != 3 {
		t.Errorf("expected garbage input to fall back to the default, got %d", cfg.StartRetries)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\n" +
		"export DOTENV_TEST_A=alpha\n" +
		"DOTENV_TEST_B=\"quoted value\"\n" +
		"DOTENV_TEST_C=raw # trailing comment\n" +
		"not a pair\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("DOTENV_TEST_A", "from-env")
	// Setenv registers cleanup; the vars must be genuinely absent for the
	// file values to apply.
	t.Setenv("DOTENV_TEST_B", "x")
	t.Setenv("DOTENV_TEST_C", "x")
	os.Unsetenv("DOTENV_TEST_B")
	os.Unsetenv("DOTENV_TEST_C")

	LoadDotEnv(path, filepath.Join(dir, ".env.missing"))

	if got := os.Getenv("DOTENV_TEST_A"); got != "from-env" {
		t.Errorf("expected the real environment to win, got %q", got)
	}
	if got := os.Getenv("DOTENV_TEST_B"); got != "quoted value" {
		t.Errorf("expected quotes stripped, got %q", got)
	}
	if got := os.Getenv("DOTENV_TEST_C"); got != "raw" {
		t.Errorf("expected trailing comment stripped, got %q", got)
	}
}
