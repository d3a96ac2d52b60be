package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"messbook/internal/config"
	"messbook/internal/directory"
	"messbook/internal/events"
	apphttp "messbook/internal/http"
	"messbook/internal/ledger"
	applog "messbook/internal/log"
	"messbook/internal/storage"
	"messbook/internal/storage/memory"
	"messbook/internal/storage/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	applog.Setup(cfg.LogFormat, applog.ParseLevel(cfg.LogLevel))

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
		slog.Info("Initialized SQLite store", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		slog.Info("Initialized memory store")
	}
	defer store.Close()

	// Event publishing is optional; an empty AMQP URL disables it.
	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		slog.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		slog.Info("AMQP publishing disabled - no AMQP_URL provided")
	}

	expenseRole, err := ledger.ParseRole(cfg.ExpensePolicy)
	if err != nil {
		slog.Error("Invalid expense policy", "error", err)
		os.Exit(1)
	}

	dir := directory.New(store)
	engine := ledger.New(store, ledger.Config{
		ExpenseRole: expenseRole,
		Retries:     cfg.LedgerRetries,
	}, publisher)
	queries := ledger.NewQueries(store)

	srv := apphttp.NewServer(":"+cfg.Port, dir, engine, queries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting messbook server",
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"expense_policy", cfg.ExpensePolicy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
