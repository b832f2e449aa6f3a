package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/storefront-platform/storefront/internal/domain"
)

// SaleWorkflow records a sale and decrements the stock of every supply item
// its products consume.
//
// The workflow itself only fails on infrastructure errors. A FAILED sale is
// a completed workflow whose result has Status FAILED; callers use
// WorkflowResult.Err to recover the error.
func SaleWorkflow(ctx workflow.Context, input SaleWorkflowInput) (*domain.WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	sale := input.Sale

	result := domain.NewWorkflowResult(domain.KindSale, workflow.Now(ctx))
	result.WorkflowID = workflow.GetInfo(ctx).WorkflowExecution.ID

	logger.Info("Starting sale workflow",
		"workflowId", result.WorkflowID,
		"branchId", sale.BranchID,
		"lines", len(sale.Lines),
	)

	if err := sale.Validate(); err != nil {
		logger.Warn("Sale rejected before commit", "error", err)
		result.Fail(domain.StageValidating, err, workflow.Now(ctx))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		result.Fail(domain.StageCommitting, fmt.Errorf("%w: %w", domain.ErrCancelled, err), workflow.Now(ctx))
		return result, nil
	}

	// The sale may exist remotely once the commit is scheduled.
	ctx, _ = workflow.NewDisconnectedContext(ctx)

	var persisted domain.PersistedTransaction
	err := workflow.ExecuteActivity(
		withActivityTimeout(ctx, CommitActivityTimeout),
		CommitSaleActivity,
		CommitSaleInput{Caller: input.Caller, Sale: sale},
	).Get(ctx, &persisted)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCommerceWriteFailed, FromActivityError(err))
		logger.Error("Sale commit failed", "workflowId", result.WorkflowID, "error", err)
		result.Fail(domain.StageCommitting, err, workflow.Now(ctx))
		return result, nil
	}
	result.Transaction = &persisted

	logger.Info("Sale recorded", "saleId", persisted.ID, "totalAmount", persisted.TotalAmount.String())

	deltas := expandSale(ctx, input.Caller, result, sale, &persisted)
	applyDeltas(ctx, input.Caller, result, deltas)

	result.Finish(workflow.Now(ctx))
	publishResult(ctx, input.Caller, result)

	logger.Info("Sale workflow completed",
		"workflowId", result.WorkflowID,
		"status", result.Status,
		"applied", len(result.AppliedDeltas),
		"failed", len(result.FailedDeltas),
		"failedLines", len(result.FailedLines),
	)
	return result, nil
}

// expandSale runs one recipe lookup per line, in line order
func expandSale(ctx workflow.Context, caller Caller, result *domain.WorkflowResult, sale domain.Sale, persisted *domain.PersistedTransaction) []domain.InventoryDelta {
	logger := workflow.GetLogger(ctx)
	lookupCtx := withActivityTimeout(ctx, LookupActivityTimeout)

	var deltas []domain.InventoryDelta
	for i, line := range domain.SaleLinesForExpansion(sale, persisted) {
		var expanded []domain.InventoryDelta
		err := workflow.ExecuteActivity(lookupCtx, ExpandRecipeActivity, ExpandRecipeInput{
			Caller:    caller,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}).Get(ctx, &expanded)
		if err != nil {
			err = FromActivityError(err)
			logger.Warn("Recipe expansion failed",
				"workflowId", result.WorkflowID,
				"lineIndex", i,
				"productId", line.ProductID,
				"error", err,
			)
			result.RecordLineFailure(i, line, err)
			continue
		}
		deltas = append(deltas, domain.StampSaleDeltas(expanded, sale.BranchID, persisted.ID, line)...)
	}
	return deltas
}
