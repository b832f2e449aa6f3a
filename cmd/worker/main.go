package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront-platform/storefront/internal/activities"
	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/config"
	"github.com/storefront-platform/storefront/internal/recipe"
	"github.com/storefront-platform/storefront/internal/reconciliation"
	"github.com/storefront-platform/storefront/internal/workflows"
	"github.com/storefront-platform/storefront/pkg/kafka"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/temporal"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

const serviceName = "storefront-worker"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig())
	logger.SetDefault()
	logger.Info("Starting storefront worker")

	ctx := context.Background()

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
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Initialize Temporal client
	temporalClient, err := temporal.NewClient(ctx, cfg.TemporalClientConfig(), logger.Logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	serviceClients := clients.NewServiceClients(cfg.ClientsConfig(),
		clients.WithMetrics(m),
		clients.WithLogger(logger),
	)

	opts := []activities.Option{
		activities.WithMetrics(m),
		activities.WithLogger(logger),
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.KafkaProducerConfig())
		defer producer.Close()

		publisher := reconciliation.NewPublisher(producer,
			reconciliation.WithTopic(cfg.Kafka.Topic),
			reconciliation.WithMetrics(m),
			reconciliation.WithLogger(logger),
		)
		opts = append(opts, activities.WithPublisher(publisher))
		logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	inventorySync := activities.NewInventorySyncActivities(
		serviceClients,
		serviceClients,
		recipe.NewExpander(serviceClients, logger),
		opts...,
	)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(cfg.Temporal.TaskQueue))

	// Register workflows
	w.RegisterWorkflow(workflows.SaleWorkflow)
	w.RegisterWorkflow(workflows.PurchaseWorkflow)
	logger.Info("Registered workflows", "workflows", []string{
		temporal.WorkflowNames.Sale,
		temporal.WorkflowNames.Purchase,
	})

	// Register activities
	w.RegisterActivity(inventorySync)
	logger.Info("Registered activities", "activities", []string{
		workflows.CommitSaleActivity,
		workflows.CommitPurchaseActivity,
		workflows.ExpandRecipeActivity,
		workflows.ApplyInventoryDeltaActivity,
		workflows.PublishResultActivity,
	})

	// Start worker in background
	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", cfg.Temporal.TaskQueue)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}
