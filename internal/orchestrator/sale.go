package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// SubmitSale records a sale and decrements the stock of every supply item
// its products consume.
//
// The returned result is never nil. The error is non-nil only when the
// result is FAILED, in which case no inventory movement was attempted.
// A PARTIALLY_COMPLETED sale is still a recorded sale.
func (o *Orchestrator) SubmitSale(ctx context.Context, sale domain.Sale) (*domain.WorkflowResult, error) {
	ctx, span, result := o.start(ctx, domain.KindSale, sale.BranchID)
	defer func() { o.complete(ctx, span, result) }()

	if err := sale.Validate(); err != nil {
		result.Fail(domain.StageValidating, err, o.now())
		return result, result.Err()
	}

	if err := checkCancelled(ctx); err != nil {
		result.Fail(domain.StageCommitting, err, o.now())
		return result, result.Err()
	}

	// Past this point the sale may exist remotely; finish regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	persisted, err := o.commitSale(ctx, sale)
	if err != nil {
		result.Fail(domain.StageCommitting, err, o.now())
		return result, result.Err()
	}
	result.Transaction = persisted

	deltas := o.expandSale(ctx, result, sale, persisted)
	o.applyDeltas(ctx, result, deltas)

	result.Finish(o.now())
	return result, nil
}

func (o *Orchestrator) commitSale(ctx context.Context, sale domain.Sale) (*domain.PersistedTransaction, error) {
	ctx, span := tracing.Tracer().Start(ctx, "orchestrator.commitSale")
	defer span.End()

	persisted, err := o.commerce.CreateSale(ctx, sale)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCommerceWriteFailed, err)
		tracing.RecordResult(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("transaction.id", persisted.ID))
	o.logger.WithContext(ctx).Info("Sale recorded",
		"saleId", persisted.ID,
		"branchId", sale.BranchID,
		"lines", len(sale.Lines),
		"totalAmount", persisted.TotalAmount.String(),
	)
	return persisted, nil
}

// expandSale resolves the deltas of every sale line, in line order. A line
// whose recipe cannot be resolved is recorded and skipped.
func (o *Orchestrator) expandSale(ctx context.Context, result *domain.WorkflowResult, sale domain.Sale, persisted *domain.PersistedTransaction) []domain.InventoryDelta {
	lines := domain.SaleLinesForExpansion(sale, persisted)

	ctx, span := tracing.Tracer().Start(ctx, "orchestrator.expandRecipes",
		trace.WithAttributes(attribute.Int("lines.count", len(lines))),
	)
	defer span.End()

	var deltas []domain.InventoryDelta
	for i, line := range lines {
		expanded, err := o.expander.Expand(ctx, line.ProductID, line.Quantity)
		if err != nil {
			result.RecordLineFailure(i, line, err)
			o.metrics.RecordFailedLine()
			o.logger.WithContext(ctx).Warn("Recipe expansion failed",
				"workflowId", result.WorkflowID,
				"saleId", persisted.ID,
				"lineIndex", i,
				"productId", line.ProductID,
				"quantity", line.Quantity,
				"kind", domain.KindOf(err),
				"error", err,
			)
			continue
		}
		deltas = append(deltas, domain.StampSaleDeltas(expanded, sale.BranchID, persisted.ID, line)...)
	}

	span.SetAttributes(attribute.Int("deltas.count", len(deltas)))
	return deltas
}
