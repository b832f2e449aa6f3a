// Package activities holds the Temporal activities behind SaleWorkflow and
// PurchaseWorkflow. Each activity is a single backend call; the workflows
// own ordering and accounting.
package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/internal/orchestrator"
	"github.com/storefront-platform/storefront/internal/workflows"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
)

// EventPublisher publishes the reconciliation event of a final result
type EventPublisher interface {
	Publish(ctx context.Context, result *domain.WorkflowResult) error
}

// InventorySyncActivities contains the storefront activities
type InventorySyncActivities struct {
	commerce  orchestrator.CommerceWriter
	inventory orchestrator.InventoryWriter
	expander  orchestrator.RecipeExpander
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// Option configures InventorySyncActivities
type Option func(*InventorySyncActivities)

// WithPublisher sets the reconciliation event publisher
func WithPublisher(p EventPublisher) Option {
	return func(a *InventorySyncActivities) { a.publisher = p }
}

// WithMetrics records delta and recipe metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *InventorySyncActivities) { a.metrics = m }
}

// WithLogger sets the logger used for audit lines
func WithLogger(l *logging.Logger) Option {
	return func(a *InventorySyncActivities) { a.logger = l }
}

// NewInventorySyncActivities creates a new InventorySyncActivities instance
func NewInventorySyncActivities(commerce orchestrator.CommerceWriter, inventory orchestrator.InventoryWriter, expander orchestrator.RecipeExpander, opts ...Option) *InventorySyncActivities {
	a := &InventorySyncActivities{
		commerce:  commerce,
		inventory: inventory,
		expander:  expander,
		logger:    logging.FromSlog(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("activities")
	return a
}

// callerContext restores the caller's credentials and correlation on ctx
func callerContext(ctx context.Context, caller workflows.Caller) context.Context {
	ctx = clients.WithAuthorization(ctx, caller.Authorization)
	if caller.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, caller.CorrelationID)
	}
	return ctx
}

// CommitSale records the sale with the commerce API
func (a *InventorySyncActivities) CommitSale(ctx context.Context, input workflows.CommitSaleInput) (*domain.PersistedTransaction, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Recording sale", "branchId", input.Sale.BranchID, "lines", len(input.Sale.Lines))

	persisted, err := a.commerce.CreateSale(callerContext(ctx, input.Caller), input.Sale)
	if err != nil {
		logger.Error("Failed to record sale", "branchId", input.Sale.BranchID, "error", err)
		return nil, workflows.NewActivityError(err)
	}

	logger.Info("Sale recorded", "saleId", persisted.ID)
	return persisted, nil
}

// CommitPurchase records the purchase order with the commerce API
func (a *InventorySyncActivities) CommitPurchase(ctx context.Context, input workflows.CommitPurchaseInput) (*domain.PersistedTransaction, error) {
	logger := activity.GetLogger(ctx)
	po := input.PurchaseOrder
	logger.Info("Recording purchase order", "branchId", po.BranchID, "supplyItemId", po.SupplyItemID)

	persisted, err := a.commerce.CreatePurchaseOrder(callerContext(ctx, input.Caller), po)
	if err != nil {
		logger.Error("Failed to record purchase order", "branchId", po.BranchID, "error", err)
		return nil, workflows.NewActivityError(err)
	}

	logger.Info("Purchase order recorded", "purchaseId", persisted.ID)
	return persisted, nil
}

// ExpandRecipe resolves the outbound deltas for units of one product
func (a *InventorySyncActivities) ExpandRecipe(ctx context.Context, input workflows.ExpandRecipeInput) ([]domain.InventoryDelta, error) {
	deltas, err := a.expander.Expand(callerContext(ctx, input.Caller), input.ProductID, input.Quantity)
	if err != nil {
		a.metrics.RecordFailedLine()
		activity.GetLogger(ctx).Warn("Recipe expansion failed", "productId", input.ProductID, "error", err)
		return nil, workflows.NewActivityError(err)
	}
	return deltas, nil
}

// ApplyInventoryDelta posts one movement to the inventory API
func (a *InventorySyncActivities) ApplyInventoryDelta(ctx context.Context, input workflows.ApplyInventoryDeltaInput) (*domain.MovementRecord, error) {
	ctx = callerContext(ctx, input.Caller)
	delta := input.Delta

	record, err := a.inventory.PostMovement(ctx, delta)
	a.metrics.RecordInventoryDelta(string(delta.Direction), err == nil)
	if err != nil {
		activity.GetLogger(ctx).Warn("Inventory movement failed",
			"supplyItemId", delta.SupplyItemID,
			"originReference", delta.OriginReference,
			"error", err,
		)
		return nil, workflows.NewActivityError(err)
	}

	details := map[string]any{
		"workflowId":      input.WorkflowID,
		"branchId":        delta.BranchID,
		"direction":       delta.Direction,
		"quantity":        delta.Quantity.String(),
		"originReference": delta.OriginReference,
	}
	if record != nil {
		details["movementId"] = record.ID
	}
	a.logger.Audit(ctx, "inventory.movement.posted", "supply_item", delta.SupplyItemID, details)
	return record, nil
}

// PublishResult publishes the reconciliation event of a final result
func (a *InventorySyncActivities) PublishResult(ctx context.Context, input workflows.PublishResultInput) error {
	if a.publisher == nil {
		return nil
	}
	result := input.Result
	if err := a.publisher.Publish(callerContext(ctx, input.Caller), &result); err != nil {
		activity.GetLogger(ctx).Error("Failed to publish inventory sync event",
			"workflowId", result.WorkflowID,
			"error", err,
		)
		return workflows.NewActivityError(err)
	}
	return nil
}
