package main

import (
	"context"
	"errors"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/cli"
	"github.com/pranit27-debug/Expense-Tracker/internal/config"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	gsheet "github.com/pranit27-debug/Expense-Tracker/internal/sheets/google"
	"github.com/pranit27-debug/Expense-Tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel, nil)
	cfg = cli.MustLoadConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheetsClient.EnsureHeader(ctx, worker.AuditHeader); err != nil {
		logger.Warn("Could not verify audit sheet header", applog.FieldError, err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheetsClient, logger)
	logger.Info("Starting expenses worker",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	err = amqpClient.Consume(ctx, syncWorker.HandleEvent)
	stats := syncWorker.Stats()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err,
			"processed", stats.Processed, "failed", stats.Failed)
		return
	}
	logger.Info("Worker stopped", "processed", stats.Processed, "failed", stats.Failed)
}
