package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/psyconnect/psyconnect-api/internal/config"
	"github.com/psyconnect/psyconnect-api/internal/email"
	"github.com/psyconnect/psyconnect-api/internal/notifier"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	"github.com/psyconnect/psyconnect-api/internal/repository/postgres"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
	"github.com/psyconnect/psyconnect-api/pkg/messaging/redis"
	"github.com/psyconnect/psyconnect-api/pkg/metrics"
	"github.com/psyconnect/psyconnect-api/pkg/worker"
)

// WorkerConfig is read from the environment; the worker runs without a
// config file so it can be deployed standalone.
type WorkerConfig struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	BatchSize        int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval     time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts    int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay       time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	RetentionPeriod  time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	CleanupInterval  time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL" default:"1h"`
	HealthPort       int           `envconfig:"HEALTH_PORT" default:"8081"`
	SMTPHost         string        `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort         int           `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername     string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword     string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom         string        `envconfig:"SMTP_FROM" default:"no-reply@psyconnect.example"`
}

func main() {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))
	workerMetrics := metrics.NewMetrics("psyconnect", "worker")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}, appLogger, workerMetrics)

	mailer := email.NewSMTPService(config.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	n := notifier.New(broker, mailer, worker.EventsChannel, appLogger, workerMetrics)

	setupHealthCheck(cfg.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	go func() {
		if err := n.Start(ctx); err != nil {
			appLogger.Error(err, "Notifier stopped")
		}
	}()
	go runCleanup(ctx, outboxRepo, cfg, appLogger)

	processor.Start(ctx)
}

// runCleanup drops processed outbox rows older than the retention window.
func runCleanup(ctx context.Context, repo repository.OutboxRepository, cfg WorkerConfig, appLogger *logger.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-cfg.RetentionPeriod))
			if err != nil {
				appLogger.Error(err, "Failed to clean up processed events")
				continue
			}
			if deleted > 0 {
				appLogger.Info("Cleaned up processed events", "deleted", deleted)
			}
		}
	}
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}
