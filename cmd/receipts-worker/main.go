package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"receipts/internal/amqp"
	"receipts/internal/cli"
	applog "receipts/internal/log"
	gsheet "receipts/internal/sheets/google"
	"receipts/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting receipts-worker")
	cli.ValidateOrExit(logger, cfg.ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	sheetsClient, err := gsheet.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.Consume(gctx, syncWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err.Error())
	}

	cli.RunCleanup(logger, 10*time.Second, func(context.Context) error {
		return amqpClient.Close()
	})
}
