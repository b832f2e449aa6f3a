package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storefront-platform/storefront/internal/api"
	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/config"
	"github.com/storefront-platform/storefront/internal/orchestrator"
	"github.com/storefront-platform/storefront/internal/recipe"
	"github.com/storefront-platform/storefront/internal/reconciliation"
	"github.com/storefront-platform/storefront/pkg/kafka"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/resilience"
	"github.com/storefront-platform/storefront/pkg/temporal"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

const serviceName = "storefront-api"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig())
	logger.SetDefault()
	logger.Info("Starting storefront API", "runner", cfg.Runner)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := tracing.Initialize(ctx, cfg.TracingProviderConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Backend clients and their breakers live where the workflows run: in
	// this process inline, in the worker under Temporal.
	var runner api.Runner
	var breakers *resilience.CircuitBreakerRegistry
	switch cfg.Runner {
	case config.RunnerTemporal:
		temporalClient, err := temporal.NewClient(ctx, cfg.TemporalClientConfig(), logger.Logger)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Temporal")
			os.Exit(1)
		}
		defer temporalClient.Close()
		logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

		runner = api.NewTemporalRunner(temporalClient.Client(), cfg.Temporal.TaskQueue, cfg.Temporal.WorkflowTimeout,
			api.WithRunnerMetrics(m),
			api.WithRunnerLogger(logger),
		)

	default:
		serviceClients := clients.NewServiceClients(cfg.ClientsConfig(),
			clients.WithMetrics(m),
			clients.WithLogger(logger),
		)
		breakers = serviceClients.Breakers()

		opts := []orchestrator.Option{
			orchestrator.WithMetrics(m),
			orchestrator.WithLogger(logger),
		}
		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.KafkaProducerConfig())
			defer producer.Close()
			logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)

			publisher := reconciliation.NewPublisher(producer,
				reconciliation.WithTopic(cfg.Kafka.Topic),
				reconciliation.WithMetrics(m),
				reconciliation.WithLogger(logger),
			)
			opts = append(opts, orchestrator.WithPublisher(publisher))
		}

		expander := recipe.NewExpander(serviceClients, logger)
		runner = orchestrator.New(serviceClients, serviceClients, expander, opts...)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.RouterConfig{
		ServiceName: serviceName,
		Runner:      runner,
		Breakers:    breakers,
		Metrics:     m,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()
	logger.Info("Server started", "addr", srv.Addr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// In-flight workflows finish their remaining deltas before the server
	// returns, so give them the full workflow budget.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Temporal.WorkflowTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
