package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"messbook/internal/config"
	"messbook/internal/events"
	"messbook/internal/ledger"
	applog "messbook/internal/log"
	"messbook/internal/sheets"
	gsheet "messbook/internal/sheets/google"
	auditmem "messbook/internal/sheets/memory"
	"messbook/internal/storage"
	"messbook/internal/storage/memory"
	"messbook/internal/storage/sqlite"
	"messbook/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogFormat, applog.ParseLevel(cfg.LogLevel))

	slog.Info("Starting messbook-worker")

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.StoreBackend {
	case "sqlite":
		repo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			slog.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store = repo
	default:
		store = memory.New()
	}
	defer store.Close()

	// Audit destination: Google Sheets when configured, in-process otherwise.
	var audit sheets.AuditWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			slog.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		audit = client
		slog.Info("Google Sheets audit trail enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		audit = auditmem.New()
		slog.Info("Google Sheets disabled - auditing in memory only")
	}

	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		var err error
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
	} else {
		slog.Info("AMQP consumption disabled - no AMQP_URL provided")
	}

	engine := ledger.New(store, ledger.Config{Retries: cfg.LedgerRetries}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	w := worker.NewAuditWorker(eventsClient, audit, engine, cfg.ReconcileInterval)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker stopped gracefully")
}
