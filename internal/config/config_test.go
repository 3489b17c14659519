package config

import (
	"os"
	"path/filepath"
	"testing"
)

var configKeys = []string{"APP_ENV", "PORT", "DB_PATH", "LOG_LEVEL", "DEFAULT_CALCULATOR", "BATCH_WORKERS", "PRICING_TABLES_PATH", "SEED_CATALOG"}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load("")

	if cfg.Port != "8080" || cfg.DBPath != "./dev.db" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultCalculator != "primary" {
		t.Fatalf("DefaultCalculator=%q, want primary", cfg.DefaultCalculator)
	}
	if cfg.BatchWorkers != 4 {
		t.Fatalf("BatchWorkers=%d, want 4", cfg.BatchWorkers)
	}
	if !cfg.IsDev() || !cfg.SeedCatalog {
		t.Fatalf("expected development defaults, got %+v", cfg)
	}
}

func TestLoad_ReadsDotEnvAndIgnoresNoise(t *testing.T) {
	clearEnv(t)

	path := writeEnvFile(t, `
# comment

PORT=9090
export DEFAULT_CALCULATOR=Complex
LOG_LEVEL="debug"
BATCH_WORKERS='8'
`)

	cfg := Load(path)

	if cfg.Port != "9090" {
		t.Fatalf("Port=%q, want %q", cfg.Port, "9090")
	}
	if cfg.DefaultCalculator != "complex" {
		t.Fatalf("DefaultCalculator=%q, want %q", cfg.DefaultCalculator, "complex")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel=%q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.BatchWorkers != 8 {
		t.Fatalf("BatchWorkers=%d, want 8", cfg.BatchWorkers)
	}
}

func TestLoad_DoesNotOverwriteExistingEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	cfg := Load(writeEnvFile(t, "PORT=fromfile\n"))

	if cfg.Port != "7000" {
		t.Fatalf("Port=%q, want %q", cfg.Port, "7000")
	}
}

func TestLoad_InvalidValuesFallBackWithWarnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("BATCH_WORKERS", "-2")
	t.Setenv("SEED_CATALOG", "maybe")

	cfg := Load("")

	if cfg.BatchWorkers != 4 {
		t.Fatalf("BatchWorkers=%d, want 4", cfg.BatchWorkers)
	}
	if cfg.IsDev() || cfg.SeedCatalog {
		t.Fatalf("production config should not seed: %+v", cfg)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", cfg.Warnings)
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Port != "8080" {
		t.Fatalf("Port=%q, want default", cfg.Port)
	}
}
