package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every variable, e.g. BANK_LOG_LEVEL.
const EnvPrefix = "BANK"

type DatabaseConfig struct {
	Name        string        `envconfig:"DB_NAME" default:"bank"`
	DataDir     string        `envconfig:"DATA_DIR"`
	InMemory    bool          `envconfig:"IN_MEMORY" default:"true"`
	EnableWAL   bool          `envconfig:"WAL" default:"true"`
	BusyTimeout time.Duration `envconfig:"BUSY_TIMEOUT" default:"5s"`
}

// AppConfig holds all configuration parameters for running the terminal
type AppConfig struct {
	DatabaseConfig
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	TUI      bool   `envconfig:"TUI" default:"false"`
	Theme    string `envconfig:"THEME" default:"dark"`

	// Demo data seeded at startup
	SeedUsers    int `envconfig:"SEED_USERS" default:"0"`
	SeedAccounts int `envconfig:"SEED_ACCOUNTS" default:"2"`
}

// Load reads an optional .env file and then the BANK_* environment.
// A missing .env file is not an error.
func Load(logger *slog.Logger, envFilePath ...string) (*AppConfig, error) {
	var err error
	if len(envFilePath) > 0 && envFilePath[0] != "" {
		err = godotenv.Load(envFilePath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		logger.Debug("No .env file found or specified, using system environment variables")
	} else {
		logger.Debug("Environment variables loaded from .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, err
	}

	logger.Debug("App config loaded",
		"db_name", cfg.Name,
		"data_dir", cfg.DataDir,
		"in_memory", cfg.InMemory,
		"log_level", cfg.LogLevel,
		"tui", cfg.TUI,
	)
	return &cfg, nil
}
