package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"receipts/internal/auth"
	"receipts/internal/backend"
	"receipts/internal/cli"
	apphttp "receipts/internal/http"
	applog "receipts/internal/log"
	"receipts/internal/ports"
	"receipts/internal/reports"
	"receipts/internal/services"
)

const sessionPurgeInterval = time.Hour

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting receipts", "port", cfg.Port, "data_backend", cfg.DataBackend, "image_backend", cfg.ImageBackend)
	cli.ValidateOrExit(logger, cfg.Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err.Error())
		os.Exit(1)
	}

	receiptService := services.NewReceiptService(be.Store, be.Images, be.Publisher)
	reportService := reports.NewService(be.Store,
		reports.WithLookbackDays(cfg.ReportLookbackDays),
		reports.WithLogger(logger))
	authManager := auth.NewManager(be.Store, be.Store, cfg.SessionTTL, cfg.CookieSecure)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Receipts:        receiptService,
		Reports:         reportService,
		Auth:            authManager,
		Store:           be.Store,
		Logger:          logger,
		RateLimitRPM:    cfg.RateLimitRPM,
		TrustedProxies:  cfg.TrustedProxies,
		ReportCacheSize: cfg.ReportCacheSize,
		ReportCacheTTL:  cfg.ReportCacheTTL,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err.Error())
		_ = be.Cleanup()
		os.Exit(1)
	}

	go purgeSessions(ctx, logger, be.Store)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		}
	}

	cli.RunCleanup(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), be.Cleanup())
	})
}

// purgeSessions removes expired sessions every hour until ctx ends.
func purgeSessions(ctx context.Context, logger *applog.Logger, store ports.SessionStore) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpiredSessions(ctx, now)
			if err != nil {
				logger.WarnContext(ctx, "Failed to purge expired sessions", applog.FieldError, err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "Expired sessions purged", applog.FieldCount, n)
			}
		}
	}
}
