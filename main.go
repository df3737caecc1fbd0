package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brunoscheufler/bankterminal/cli"
	"github.com/brunoscheufler/bankterminal/config"
	"github.com/brunoscheufler/bankterminal/constants"
	"github.com/brunoscheufler/bankterminal/shell"
	"github.com/brunoscheufler/bankterminal/store"
	"github.com/brunoscheufler/bankterminal/telemetry"
)

func main() {
	dbName := flag.String("db", constants.DefaultDatabaseName, "Name of the database file under <data-dir>/.data")
	dataDir := flag.String("data-dir", "", "Directory holding the .data folder (defaults to the working directory)")
	inMemory := flag.Bool("in-memory", true, "Keep all data in memory for this session only")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	tuiMode := flag.Bool("tui", false, "Run the full-screen terminal UI instead of the line shell")
	theme := flag.String("theme", "dark", "Theme for TUI mode (dark or light)")
	envFile := flag.String("env-file", "", "Path to a .env file (defaults to ./.env)")

	// Demo data flags
	seedUsers := flag.Int("seed", 0, "Number of demo users to register at startup")
	seedAccounts := flag.Int("seed-accounts", 2, "Number of accounts to open for each demo user")

	flag.Parse()

	cfg, err := config.Load(slog.Default(), *envFile)
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	// Flags given on the command line win over the environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.Name = *dbName
		case "data-dir":
			cfg.DataDir = *dataDir
		case "in-memory":
			cfg.InMemory = *inMemory
		case "log-level":
			cfg.LogLevel = *logLevel
		case "tui":
			cfg.TUI = *tuiMode
		case "theme":
			cfg.Theme = *theme
		case "seed":
			cfg.SeedUsers = *seedUsers
		case "seed-accounts":
			cfg.SeedAccounts = *seedAccounts
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}

// initializeStore opens the store and makes sure it answers before the session starts.
func initializeStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*store.SQLiteStore, error) {
	opts := store.DefaultStoreOptions(cfg.Name)
	opts.BasePath = cfg.DataDir
	opts.InMemory = cfg.InMemory
	opts.Config.BusyTimeout = cfg.BusyTimeout
	opts.Config.EnableWAL = cfg.EnableWAL && !cfg.InMemory
	opts.Logger = logger

	bank, err := store.NewSQLiteStore(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create store: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, constants.StoreOpenTimeout)
	defer cancel()

	if err := bank.HealthCheck(healthCtx); err != nil {
		bank.Close()
		return nil, fmt.Errorf("store health check failed: %w", err)
	}

	return bank, nil
}

func Run(ctx context.Context, cfg *config.AppConfig) error {
	fmt.Println("Loading...")

	tel := telemetry.New(
		telemetry.WithCLIMode(cfg.TUI),
		telemetry.WithLogLevel(cfg.LogLevel),
	)
	tel.SetupLogging()

	bank, err := initializeStore(ctx, cfg, tel.Logger)
	if err != nil {
		return err
	}
	defer bank.Close()

	tel.StatsCollector.SetCounter(bank)
	tel.Logger.Debug("store ready", "db_name", cfg.Name, "in_memory", cfg.InMemory)

	if cfg.SeedUsers > 0 {
		sim := NewSimulator(bank, tel.Logger, SimulatorOptions{
			UserCount:       cfg.SeedUsers,
			AccountsPerUser: cfg.SeedAccounts,
		})
		if _, err := sim.Run(ctx); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	if cfg.TUI {
		return cli.RunCLI(ctx, bank, tel, cli.CLIOptions{Theme: cfg.Theme})
	}

	fmt.Println("Welcome to the bank of Ryan!")

	sh := shell.New(bank,
		shell.WithLogger(tel.Logger),
		shell.WithStats(tel.StatsCollector),
		shell.WithColor(telemetry.IsTerminal(os.Stdout)),
	)
	if err := sh.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println("Goodbye!")
	return nil
}
