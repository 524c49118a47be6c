package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/schedule"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.ComponentWorker, cfg.LogLevel)
	applog.SetDefault(logger)

	logger.Info("Starting reminder-worker")

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

	// Reminder events are published best effort; marking bills overdue
	// works without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without reminder events", applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	reminderWorker := worker.NewReminderWorker(repo, amqpClient, schedule.NewClock(), cfg.DefaultTimezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Reminder sweep configured", "interval", cfg.ReminderInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReminderInterval)
		defer ticker.Stop()

		// Sweep once on startup; overdue state must not wait an interval.
		sweep(ctx, logger, reminderWorker)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweep(ctx, logger, reminderWorker)
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Reminder-worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Reminder-worker shutdown complete")
}

func sweep(ctx context.Context, logger *applog.Logger, w *worker.ReminderWorker) {
	result, err := w.Sweep(ctx)
	if err != nil {
		logger.Error("Reminder sweep failed", applog.FieldError, err)
		return
	}
	logger.Info("Reminder sweep complete",
		"checked", result.Checked,
		"marked_overdue", result.MarkedOverdue,
		"events_published", result.EventsPublished)
}
