// Package main provides the entry point for the helpdesk triage Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/helpdesk-triage-service/internal/config"
	"github.com/helixir/helpdesk-triage-service/internal/database"
	"github.com/helixir/helpdesk-triage-service/internal/intake"
	"github.com/helixir/helpdesk-triage-service/internal/llm"
	"github.com/helixir/helpdesk-triage-service/internal/notify"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/outbox"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
	"github.com/helixir/helpdesk-triage-service/internal/temporal"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/activities"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/workflows"
	"github.com/helixir/helpdesk-triage-service/internal/triage"
)

const serviceName = "helpdesk-triage-service"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("helpdesk-triage-service worker starting")

	fallbackMode, err := triage.ParseFallbackMode(cfg.Triage.FallbackMode)
	if err != nil {
		return fmt.Errorf("parse fallback mode: %w", err)
	}

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Create repositories.
	ticketRepo := repository.NewPgTicketRepository(db)
	userRepo := repository.NewPgUserRepository(db)

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// Create the ticket classifier.
	provider, err := llm.NewProvider(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	classifier := llm.NewClassifier(provider, llm.ClassifierConfig{
		MaxRetries:     cfg.LLM.MaxRetries,
		InitialBackoff: cfg.LLM.RetryDelay,
		MaxBackoff:     cfg.LLM.MaxRetryDelay,
		RateLimitRPS:   cfg.LLM.RateLimitRPS,
		RateLimitBurst: cfg.LLM.RateLimitBurst,
		MaxTokens:      cfg.LLM.MaxTokens,
	})
	classifierLog := observability.WithClassifierContext(logger, classifier.Provider(), classifier.Model())
	classifierLog.Info().Msg("ticket classifier created")

	// Mail dispatcher with optional Redis dedupe.
	dispatcher, closeDispatcher := buildDispatcher(cfg, logger)
	defer closeDispatcher()

	// Triage outcome events.
	publisher, closePublisher := buildPublisher(cfg, logger)
	defer closePublisher()

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workerCfg := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorkerManager(temporalClient, workerCfg)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	// Register workflows.
	wf := workflows.New(workflows.Settings{
		FallbackMode: fallbackMode,
		Steps: resilience.StepSettings{
			MaxAttempts:     cfg.Triage.StepMaxAttempts,
			StepTimeout:     cfg.Triage.StepTimeout,
			ClassifyTimeout: cfg.Triage.ClassifyTimeout,
		},
	})
	manager.RegisterWorkflow(wf.TicketTriageWorkflow)
	manager.RegisterWorkflow(wf.WelcomeWorkflow)

	// Register activities.
	manager.RegisterActivity(activities.NewTicketActivities(ticketRepo, metrics))
	manager.RegisterActivity(activities.NewClassifyActivities(classifier, metrics))
	manager.RegisterActivity(activities.NewAssignmentActivities(triage.NewAssignmentPolicy(userRepo), metrics))
	manager.RegisterActivity(activities.NewNotificationActivities(dispatcher, userRepo, metrics, cfg.Triage.NotifyEnabled))
	manager.RegisterActivity(activities.NewEventActivities(publisher, metrics))

	// Start the intake listener if Kafka is configured.
	if cfg.Kafka.Enabled {
		workflowClient := temporal.NewTriageWorkflowClient(temporalClient, cfg.Temporal.TaskQueue)
		listener := intake.NewListener(
			intake.Config{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.IntakeTopic,
				GroupID: cfg.Kafka.GroupID,
			},
			workflowClient,
			ticketRepo,
			metrics,
			logger,
		)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close intake listener")
			}
		}()

		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("intake listener error")
			}
		}()

		logger.Info().
			Str("topic", cfg.Kafka.IntakeTopic).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("intake listener started")
	}

	// Expose worker metrics.
	if cfg.Metrics.Enabled {
		metricsServer := startMetricsServer(cfg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}

// buildDispatcher creates the mail dispatcher for the configured transport.
func buildDispatcher(cfg *config.Config, logger zerolog.Logger) (*notify.Dispatcher, func()) {
	var sender notify.Sender
	switch cfg.Notification.Transport {
	case config.TransportSMTP:
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Notification.SMTPHost,
			Port:     cfg.Notification.SMTPPort,
			Username: cfg.Notification.SMTPUsername,
			Password: cfg.Notification.SMTPPassword,
			From:     cfg.Notification.FromAddress,
			Timeout:  cfg.Notification.Timeout,
		})
	default:
		sender = notify.NewLogSender(logger)
	}

	if !cfg.Redis.Enabled {
		return notify.NewDispatcher(sender, logger), func() {}
	}

	rdb := notify.NewRedis(notify.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	return notify.NewDispatcher(sender, logger, notify.WithDeduper(rdb, cfg.Redis.DedupeTTL)), rdb.Close
}

// buildPublisher creates the triage event publisher, writing to Kafka when enabled.
func buildPublisher(cfg *config.Config, logger zerolog.Logger) (*outbox.Publisher, func()) {
	emitter := outbox.NewEmitter(outbox.EmitterConfig{ServiceName: serviceName})
	if !cfg.Kafka.Enabled {
		logger.Info().Msg("kafka disabled, triage events are not published")
		return outbox.NewPublisher(emitter, outbox.NoopSink{}), func() {}
	}

	writer := outbox.NewKafkaWriter(outbox.KafkaWriterConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.EventsTopic,
	})
	if cfg.Kafka.BatchSize > 0 {
		writer.BatchSize = cfg.Kafka.BatchSize
	}
	if cfg.Kafka.BatchTimeout > 0 {
		writer.BatchTimeout = cfg.Kafka.BatchTimeout
	}
	return outbox.NewPublisher(emitter, outbox.NewKafkaSink(writer)), func() {
		if err := writer.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close kafka writer")
		}
	}
}

func startMetricsServer(cfg *config.Config, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddress(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("address", srv.Addr).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	return srv
}
