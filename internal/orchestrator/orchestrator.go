// Package orchestrator runs the sale and purchase workflows: commit the
// commercial record, then apply the inventory deltas it implies.
//
// Nothing is retried or deduplicated. A workflow that gets past the commit
// always runs to the end and reports every delta it attempted.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// CommerceWriter creates commercial records
type CommerceWriter interface {
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.PersistedTransaction, error)
	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PersistedTransaction, error)
}

// InventoryWriter posts one inventory movement
type InventoryWriter interface {
	PostMovement(ctx context.Context, delta domain.InventoryDelta) (*domain.MovementRecord, error)
}

// RecipeExpander expands units sold into outbound deltas
type RecipeExpander interface {
	Expand(ctx context.Context, productID string, quantitySold int) ([]domain.InventoryDelta, error)
}

// ResultPublisher is notified of every workflow that committed its record.
// Publishing is best effort and never changes the result.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result *domain.WorkflowResult)
}

// Orchestrator runs the sale and purchase workflows in-process
type Orchestrator struct {
	commerce  CommerceWriter
	inventory InventoryWriter
	expander  RecipeExpander
	publisher ResultPublisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPublisher sets the publisher notified of committed workflows
func WithPublisher(p ResultPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithMetrics records workflow metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates a new Orchestrator
func New(commerce CommerceWriter, inventory InventoryWriter, expander RecipeExpander, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		commerce:  commerce,
		inventory: inventory,
		expander:  expander,
		logger:    logging.FromSlog(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("orchestrator")
	return o
}

// start opens the workflow span and result
func (o *Orchestrator) start(ctx context.Context, kind domain.TransactionKind, branchID string) (context.Context, trace.Span, *domain.WorkflowResult) {
	result := domain.NewWorkflowResult(kind, o.now())
	result.WorkflowID = workflowID(kind)

	ctx, span := tracing.Tracer().Start(ctx, "orchestrator."+string(kind),
		trace.WithAttributes(tracing.WorkflowSpanAttributes(string(kind), branchID)...),
		trace.WithAttributes(attribute.String("workflow.id", result.WorkflowID)),
	)

	o.logger.WorkflowStart(ctx, string(kind), result.WorkflowID)
	return ctx, span, result
}

// complete records the terminal state of a workflow
func (o *Orchestrator) complete(ctx context.Context, span trace.Span, result *domain.WorkflowResult) {
	defer span.End()

	span.SetAttributes(
		attribute.String("workflow.status", string(result.Status)),
		attribute.Int("workflow.deltas.applied", len(result.AppliedDeltas)),
		attribute.Int("workflow.deltas.failed", len(result.FailedDeltas)),
		attribute.Int("workflow.lines.failed", len(result.FailedLines)),
	)
	if result.Transaction != nil {
		span.SetAttributes(attribute.String("transaction.id", result.Transaction.ID))
	}
	tracing.RecordResult(span, result.Err())

	o.metrics.RecordWorkflow(string(result.Kind), string(result.Status), result.Duration())
	o.logger.WorkflowComplete(ctx, string(result.Kind), result.WorkflowID, string(result.Status), result.Duration())

	if result.Failure != nil {
		o.logger.WithContext(ctx).Error("Workflow failed",
			"workflowId", result.WorkflowID,
			"stage", result.Failure.Stage,
			"kind", result.Failure.Kind,
			"message", result.Failure.Message,
		)
	}

	if o.publisher != nil && result.Transaction != nil {
		o.publisher.PublishResult(ctx, result)
	}
}

// checkCancelled honors caller cancellation. It is only consulted before
// the commit.
func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	return nil
}

// applyDeltas posts every delta in order. A failed delta never stops the
// ones after it.
func (o *Orchestrator) applyDeltas(ctx context.Context, result *domain.WorkflowResult, deltas []domain.InventoryDelta) {
	ctx, span := tracing.Tracer().Start(ctx, "orchestrator.applyInventory",
		trace.WithAttributes(attribute.Int("deltas.count", len(deltas))),
	)
	defer span.End()

	for _, delta := range deltas {
		record, err := o.applyDelta(ctx, delta)
		if err != nil {
			result.RecordFailed(delta, err)
			o.metrics.RecordInventoryDelta(string(delta.Direction), false)
			o.logger.WithContext(ctx).Warn("Inventory delta failed",
				"workflowId", result.WorkflowID,
				"supplyItemId", delta.SupplyItemID,
				"branchId", delta.BranchID,
				"direction", delta.Direction,
				"quantity", delta.Quantity.String(),
				"originReference", delta.OriginReference,
				"kind", domain.KindOf(err),
				"error", err,
			)
			continue
		}

		result.RecordApplied(delta, record)
		o.metrics.RecordInventoryDelta(string(delta.Direction), true)
		o.audit(ctx, result, delta, record)
	}
}

func (o *Orchestrator) applyDelta(ctx context.Context, delta domain.InventoryDelta) (record *domain.MovementRecord, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "orchestrator.applyDelta",
		trace.WithAttributes(tracing.DeltaSpanAttributes(delta.SupplyItemID, string(delta.Direction), delta.Quantity.String())...),
	)
	defer func() {
		tracing.RecordResult(span, err)
		span.End()
	}()

	if err = delta.Validate(); err != nil {
		return nil, err
	}
	record, err = o.inventory.PostMovement(ctx, delta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInventoryWriteFailed, err)
	}
	return record, nil
}

// audit writes the client-side trail of an applied movement. The inventory
// API stores only the origin reference string.
func (o *Orchestrator) audit(ctx context.Context, result *domain.WorkflowResult, delta domain.InventoryDelta, record *domain.MovementRecord) {
	details := map[string]any{
		"workflowId":      result.WorkflowID,
		"branchId":        delta.BranchID,
		"direction":       delta.Direction,
		"quantity":        delta.Quantity.String(),
		"originReference": delta.OriginReference,
	}
	if record != nil {
		details["movementId"] = record.ID
	}
	if result.Transaction != nil {
		details["transactionId"] = result.Transaction.ID
	}
	o.logger.Audit(ctx, "inventory.movement.posted", "supply_item", delta.SupplyItemID, details)
}

func workflowID(kind domain.TransactionKind) string {
	prefix := "sale"
	if kind == domain.KindPurchaseOrder {
		prefix = "purchase"
	}
	return prefix + "-" + uuid.NewString()
}
