package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	timeout := flag.Duration("timeout", 30*time.Second, "Timeout for applying all migrations")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if *dryRun {
		migrations, err := postgres.Migrations()
		if err != nil {
			logger.Fatalw("Failed to read migrations", "error", err)
		}
		for _, m := range migrations {
			fmt.Printf("-- %s\n%s\n", m.Version, m.SQL)
		}
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.Info("Running database migrations...")
	applied, err := db.Migrate(ctx)
	if err != nil {
		logger.Fatalw("Failed to run migrations", "error", err)
	}

	if len(applied) == 0 {
		logger.Info("Database schema is up to date")
		return
	}
	logger.Infow("Migrations completed successfully", "applied", applied)
}
