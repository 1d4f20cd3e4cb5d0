// Package cli provides common initialization shared by cmd/haushaltsbuch
// and cmd/ingest.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/amqp"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/config"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/ingest"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"

	// Registered store backends.
	_ "github.com/jschulzedieckmann/haushaltsbuch/internal/store/sqlite"
	_ "github.com/jschulzedieckmann/haushaltsbuch/internal/store/supabase"
)

// SetupLogger initializes structured logging and sets it as the default.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured store backend, exiting on failure.
func OpenStore(logger *slog.Logger, cfg *config.Config) store.Store {
	st, err := store.Open(store.Settings{
		Backend:      cfg.StoreBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
		SupabaseURL:  cfg.SupabaseURL,
		SupabaseKey:  cfg.SupabaseKey,
	})
	if err != nil {
		logger.Error("Failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	return st
}

// NewEventPublisher connects the optional AMQP publisher. A missing
// broker is logged and tolerated; import events then only appear in the
// logs.
func NewEventPublisher(logger *slog.Logger, cfg *config.Config) ingest.EventPublisher {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to connect AMQP, continuing without import events", "error", err)
		return nil
	}
	logger.Info("Connected AMQP publisher",
		"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}
