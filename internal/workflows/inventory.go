package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/storefront-platform/storefront/internal/domain"
)

// applyDeltas posts every delta in order, one activity each. A failed delta
// never stops the ones after it.
func applyDeltas(ctx workflow.Context, caller Caller, result *domain.WorkflowResult, deltas []domain.InventoryDelta) {
	logger := workflow.GetLogger(ctx)
	deltaCtx := withActivityTimeout(ctx, DeltaActivityTimeout)

	for _, delta := range deltas {
		if err := delta.Validate(); err != nil {
			result.RecordFailed(delta, err)
			continue
		}

		var record domain.MovementRecord
		err := workflow.ExecuteActivity(deltaCtx, ApplyInventoryDeltaActivity, ApplyInventoryDeltaInput{
			Caller:     caller,
			WorkflowID: result.WorkflowID,
			Delta:      delta,
		}).Get(ctx, &record)
		if err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrInventoryWriteFailed, FromActivityError(err))
			logger.Warn("Inventory delta failed",
				"workflowId", result.WorkflowID,
				"supplyItemId", delta.SupplyItemID,
				"direction", delta.Direction,
				"quantity", delta.Quantity.String(),
				"error", err,
			)
			result.RecordFailed(delta, err)
			continue
		}
		result.RecordApplied(delta, &record)
	}
}

// publishResult emits the reconciliation event. Failures are logged only.
func publishResult(ctx workflow.Context, caller Caller, result *domain.WorkflowResult) {
	if result.Transaction == nil {
		return
	}
	err := workflow.ExecuteActivity(
		withActivityTimeout(ctx, PublishActivityTimeout),
		PublishResultActivity,
		PublishResultInput{Caller: caller, Result: *result},
	).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish workflow result",
			"workflowId", result.WorkflowID,
			"error", err,
		)
	}
}
