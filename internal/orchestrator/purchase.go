package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// SubmitPurchase records a purchase order and increments the stock of the
// purchased supply item with a single INBOUND delta.
//
// Result and error follow the same contract as SubmitSale.
func (o *Orchestrator) SubmitPurchase(ctx context.Context, po domain.PurchaseOrder) (*domain.WorkflowResult, error) {
	ctx, span, result := o.start(ctx, domain.KindPurchaseOrder, po.BranchID)
	defer func() { o.complete(ctx, span, result) }()

	if err := po.Validate(); err != nil {
		result.Fail(domain.StageValidating, err, o.now())
		return result, result.Err()
	}

	if err := checkCancelled(ctx); err != nil {
		result.Fail(domain.StageCommitting, err, o.now())
		return result, result.Err()
	}

	ctx = context.WithoutCancel(ctx)

	persisted, err := o.commitPurchase(ctx, po)
	if err != nil {
		result.Fail(domain.StageCommitting, err, o.now())
		return result, result.Err()
	}
	result.Transaction = persisted

	o.applyDeltas(ctx, result, []domain.InventoryDelta{domain.PurchaseDelta(po, persisted)})

	result.Finish(o.now())
	return result, nil
}

func (o *Orchestrator) commitPurchase(ctx context.Context, po domain.PurchaseOrder) (*domain.PersistedTransaction, error) {
	ctx, span := tracing.Tracer().Start(ctx, "orchestrator.commitPurchase")
	defer span.End()

	persisted, err := o.commerce.CreatePurchaseOrder(ctx, po)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCommerceWriteFailed, err)
		tracing.RecordResult(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("transaction.id", persisted.ID))
	o.logger.WithContext(ctx).Info("Purchase order recorded",
		"purchaseId", persisted.ID,
		"branchId", po.BranchID,
		"providerId", po.ProviderID,
		"supplyItemId", po.SupplyItemID,
		"quantity", po.Quantity.String(),
	)
	return persisted, nil
}
