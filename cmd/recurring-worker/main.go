package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.ComponentWorker, cfg.LogLevel)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Generated transactions are queued for export like manual entries, so
	// the worker publishes too when AMQP is configured.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	transactions := services.NewTransactionService(repo, amqpClient)
	processor := services.NewRecurringProcessor(repo, transactions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring template processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Run once on startup so a restarted worker catches up immediately.
	if count, err := processor.ProcessDueTemplates(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", applog.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "transactions_created", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := processor.ProcessDueTemplates(ctx, now)
				if err != nil {
					logger.Error("Periodic processing failed", applog.FieldError, err)
					continue
				}
				logger.Info("Periodic processing complete",
					"transactions_created", count,
					"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
