// Package main is the entry point for the Inventra background worker.
// It relays the notification outbox and sweeps expired auth and
// idempotency rows for all tenants in the shared database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"inventra/internal/core/tenant"
	"inventra/internal/domain/notify"
	infranotify "inventra/internal/infrastructure/notify"
	"inventra/internal/infrastructure/storage/postgres"
	"inventra/internal/infrastructure/storage/postgres/auth_repo"
	"inventra/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting inventra worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	// Delivery backend: SMTP when configured, otherwise drained silently so
	// the outbox does not grow without bound.
	var delivery notify.Notifier = notify.Noop{}
	if host := getEnv("SMTP_HOST", ""); host != "" {
		delivery = infranotify.NewSMTPNotifier(infranotify.SMTPConfig{
			Host:     host,
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@inventra.local"),
		})
		log.Infow("smtp delivery configured", "host", host)
	} else {
		log.Info("no smtp host configured, notifications are discarded")
	}

	relay := postgres.NewOutboxRelay(pool.Unwrap(), 100, infranotify.NewHandler(delivery))

	worker := &Worker{
		pool:  pool,
		relay: relay,
		log:   log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker owns the outbox relay loop and hourly cleanup sweeps.
type Worker struct {
	pool  *postgres.Pool
	relay *postgres.OutboxRelay
	log   *logger.Logger
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Debugw("processed outbox batch", "count", processed)
			}

		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("outbox dlq sweep failed", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved poisoned outbox messages to dlq", "count", moved)
	}

	txManager := postgres.NewTxManager(w.pool)
	tokenRepo := auth_repo.NewTokenRepo()
	if count, err := tokenRepo.CleanupExpiredTokens(tenant.WithTxManager(ctx, txManager)); err != nil {
		w.log.Errorw("token cleanup failed", "error", err)
	} else if count > 0 {
		w.log.Infow("cleaned up expired refresh tokens", "count", count)
	}

	store := postgres.NewIdempotencyStore(txManager, 24*time.Hour)
	if count, err := store.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if count > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", count)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
