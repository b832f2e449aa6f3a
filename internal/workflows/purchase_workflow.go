package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/storefront-platform/storefront/internal/domain"
)

// PurchaseWorkflow records a purchase order and increments the stock of the
// purchased supply item. Result semantics match SaleWorkflow.
func PurchaseWorkflow(ctx workflow.Context, input PurchaseWorkflowInput) (*domain.WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	po := input.PurchaseOrder

	result := domain.NewWorkflowResult(domain.KindPurchaseOrder, workflow.Now(ctx))
	result.WorkflowID = workflow.GetInfo(ctx).WorkflowExecution.ID

	logger.Info("Starting purchase workflow",
		"workflowId", result.WorkflowID,
		"branchId", po.BranchID,
		"supplyItemId", po.SupplyItemID,
	)

	if err := po.Validate(); err != nil {
		logger.Warn("Purchase order rejected before commit", "error", err)
		result.Fail(domain.StageValidating, err, workflow.Now(ctx))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		result.Fail(domain.StageCommitting, fmt.Errorf("%w: %w", domain.ErrCancelled, err), workflow.Now(ctx))
		return result, nil
	}

	ctx, _ = workflow.NewDisconnectedContext(ctx)

	var persisted domain.PersistedTransaction
	err := workflow.ExecuteActivity(
		withActivityTimeout(ctx, CommitActivityTimeout),
		CommitPurchaseActivity,
		CommitPurchaseInput{Caller: input.Caller, PurchaseOrder: po},
	).Get(ctx, &persisted)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCommerceWriteFailed, FromActivityError(err))
		logger.Error("Purchase commit failed", "workflowId", result.WorkflowID, "error", err)
		result.Fail(domain.StageCommitting, err, workflow.Now(ctx))
		return result, nil
	}
	result.Transaction = &persisted

	logger.Info("Purchase order recorded", "purchaseId", persisted.ID)

	applyDeltas(ctx, input.Caller, result, []domain.InventoryDelta{domain.PurchaseDelta(po, &persisted)})

	result.Finish(workflow.Now(ctx))
	publishResult(ctx, input.Caller, result)

	logger.Info("Purchase workflow completed", "workflowId", result.WorkflowID, "status", result.Status)
	return result, nil
}
