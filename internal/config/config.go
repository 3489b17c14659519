package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnv          = "development"
	defaultDBPath       = "./dev.db"
	defaultPort         = "8080"
	defaultLogLevel     = "info"
	defaultCalculator   = "primary"
	defaultBatchWorkers = 4
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env               string
	Port              string
	DBPath            string
	LogLevel          string
	DefaultCalculator string
	BatchWorkers      int
	// TablesPath points at an optional YAML file overriding the pricing tables.
	TablesPath  string
	SeedCatalog bool
	// Warnings lists values that were present but unusable and fell back to defaults.
	Warnings []string
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Load reads the dotenv file at path (if any) and the environment, and returns
// a populated Config. Variables already set in the environment win over the file.
func Load(envFile string) Config {
	if envFile != "" {
		// Best-effort: production should use real env injection.
		_ = godotenv.Load(envFile)
	}

	cfg := Config{
		Env:               os.Getenv("APP_ENV"),
		Port:              os.Getenv("PORT"),
		DBPath:            os.Getenv("DB_PATH"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		DefaultCalculator: strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_CALCULATOR"))),
		TablesPath:        os.Getenv("PRICING_TABLES_PATH"),
		BatchWorkers:      defaultBatchWorkers,
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.DefaultCalculator == "" {
		cfg.DefaultCalculator = defaultCalculator
	}

	if raw := os.Getenv("BATCH_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			cfg.Warnings = append(cfg.Warnings, "BATCH_WORKERS must be a positive integer, using default")
		} else {
			cfg.BatchWorkers = n
		}
	}

	cfg.SeedCatalog = cfg.IsDev()
	if raw := os.Getenv("SEED_CATALOG"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, "SEED_CATALOG must be a boolean, using default")
		} else {
			cfg.SeedCatalog = b
		}
	}

	return cfg
}
