// Package reconciliation publishes the outcome of committed workflows so
// operators can correct stock after a partial failure.
package reconciliation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/cloudevents"
	"github.com/storefront-platform/storefront/pkg/kafka"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/resilience"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// EventProducer writes a CloudEvent to a topic
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.StorefrontCloudEvent) error
}

// Publisher emits inventory sync events for committed workflows
type Publisher struct {
	producer EventProducer
	factory  *cloudevents.EventFactory
	topic    string
	retry    *resilience.RetryConfig
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// Option configures a Publisher
type Option func(*Publisher)

// WithTopic overrides the destination topic
func WithTopic(topic string) Option {
	return func(p *Publisher) { p.topic = topic }
}

// WithRetry overrides the retry policy of the notification
func WithRetry(cfg *resilience.RetryConfig) Option {
	return func(p *Publisher) { p.retry = cfg }
}

// WithMetrics records publish metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// NewPublisher creates a new Publisher
func NewPublisher(producer EventProducer, opts ...Option) *Publisher {
	p := &Publisher{
		producer: producer,
		factory:  cloudevents.NewEventFactory(cloudevents.SourceInventorySync),
		topic:    kafka.Topics.InventoryReconciliation,
		retry:    resilience.DefaultRetryConfig(),
		logger:   logging.FromSlog(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("reconciliation-publisher")
	return p
}

// NewEvent builds the event for a committed result. It returns nil for
// results that never reached the commit.
func (p *Publisher) NewEvent(ctx context.Context, result *domain.WorkflowResult) *cloudevents.StorefrontCloudEvent {
	if result == nil || result.Transaction == nil {
		return nil
	}

	var event *cloudevents.StorefrontCloudEvent
	switch result.Status {
	case domain.StatusCompleted:
		event = p.factory.CreateEvent(ctx, cloudevents.InventorySynced, result.Transaction.ID, NewInventorySyncedData(result))
	case domain.StatusPartiallyCompleted:
		event = p.factory.CreateEvent(ctx, cloudevents.InventoryReconciliationRequired, result.Transaction.ID, NewReconciliationRequiredData(result))
	default:
		return nil
	}

	event.BranchID = result.Transaction.BranchID
	event.WorkflowID = result.WorkflowID
	return event
}

// PublishResult publishes the sync event for result. Failures are logged
// and never returned; the workflow outcome is already final.
func (p *Publisher) PublishResult(ctx context.Context, result *domain.WorkflowResult) {
	if err := p.Publish(ctx, result); err != nil {
		p.logger.WithContext(ctx).Error("Failed to publish inventory sync event",
			"workflowId", result.WorkflowID,
			"status", result.Status,
			"error", err,
		)
	}
}

// Publish publishes the sync event for result with a bounded retry
func (p *Publisher) Publish(ctx context.Context, result *domain.WorkflowResult) error {
	event := p.NewEvent(ctx, result)
	if event == nil {
		return nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "reconciliation.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(tracing.MessagingSpanAttributes("kafka", p.topic, "publish")...),
	)
	defer span.End()

	start := time.Now()
	err := resilience.Retry(ctx, p.retry, func() error {
		return p.producer.PublishEvent(ctx, p.topic, event)
	})
	p.metrics.RecordReconciliationEvent(p.topic, event.Type, err == nil, time.Since(start))
	tracing.RecordResult(span, err)
	if err != nil {
		return err
	}

	if event.Type == cloudevents.InventoryReconciliationRequired {
		p.logger.WithContext(ctx).Warn("Inventory reconciliation required",
			"workflowId", result.WorkflowID,
			"transactionId", result.Transaction.ID,
			"failedDeltas", len(result.FailedDeltas),
			"failedLines", len(result.FailedLines),
			"eventId", event.ID,
		)
	} else {
		p.logger.WithContext(ctx).Debug("Published inventory sync event",
			"workflowId", result.WorkflowID,
			"eventType", event.Type,
			"eventId", event.ID,
		)
	}
	return nil
}
