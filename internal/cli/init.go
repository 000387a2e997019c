// Package cli provides the startup and shutdown steps shared by
// cmd/receipts and cmd/receipts-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"receipts/internal/config"
	applog "receipts/internal/log"
	"receipts/internal/storage"
)

// SetupLogger builds the process logger at the given level and makes it the
// slog default so packages using applog.Default share it.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration or exits the process.
func LoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		applog.Default(applog.ComponentApp).Error("Failed to load configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// ValidateOrExit runs validate and exits the process on failure.
func ValidateOrExit(logger *applog.Logger, validate func() error) {
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, cancel
}

// RunCleanup runs cleanup with a deadline and logs the outcome.
func RunCleanup(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cleanup(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Warn("Shutdown finished with errors", applog.FieldError, err.Error())
			return
		}
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}
