package reconciliation

import (
	"time"

	"github.com/storefront-platform/storefront/internal/domain"
)

// DeltaPayload is an inventory delta as carried in events
type DeltaPayload struct {
	SupplyItemID    string `json:"supplyItemId"`
	BranchID        string `json:"branchId"`
	Direction       string `json:"direction"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit,omitempty"`
	OriginReference string `json:"originReference"`
	MovementID      string `json:"movementId,omitempty"`
}

// FailedDeltaPayload is a delta the inventory API did not accept
type FailedDeltaPayload struct {
	DeltaPayload
	ErrorKind    string `json:"errorKind"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode,omitempty"`
	Retryable    bool   `json:"retryable"`
}

// FailedLinePayload is a sale line whose recipe could not be expanded
type FailedLinePayload struct {
	LineIndex    int    `json:"lineIndex"`
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	ErrorKind    string `json:"errorKind"`
	ErrorMessage string `json:"errorMessage"`
}

// InventorySyncedData is the payload of storefront.inventory.synced
type InventorySyncedData struct {
	WorkflowID      string         `json:"workflowId"`
	TransactionID   string         `json:"transactionId"`
	TransactionKind string         `json:"transactionKind"`
	BranchID        string         `json:"branchId"`
	AppliedDeltas   []DeltaPayload `json:"appliedDeltas"`
	CompletedAt     time.Time      `json:"completedAt"`
}

// ReconciliationRequiredData is the payload of
// storefront.inventory.reconciliation-required. It lists everything an
// operator needs to correct stock by hand; nothing consumes it as work.
type ReconciliationRequiredData struct {
	WorkflowID      string               `json:"workflowId"`
	TransactionID   string               `json:"transactionId"`
	TransactionKind string               `json:"transactionKind"`
	BranchID        string               `json:"branchId"`
	AppliedDeltas   []DeltaPayload       `json:"appliedDeltas"`
	FailedDeltas    []FailedDeltaPayload `json:"failedDeltas"`
	FailedLines     []FailedLinePayload  `json:"failedLines"`
	CompletedAt     time.Time            `json:"completedAt"`
}

func toDeltaPayload(d domain.InventoryDelta, movementID string) DeltaPayload {
	return DeltaPayload{
		SupplyItemID:    d.SupplyItemID,
		BranchID:        d.BranchID,
		Direction:       string(d.Direction),
		Quantity:        d.Quantity.String(),
		Unit:            d.Unit,
		OriginReference: d.OriginReference,
		MovementID:      movementID,
	}
}

func appliedPayloads(result *domain.WorkflowResult) []DeltaPayload {
	out := make([]DeltaPayload, len(result.AppliedDeltas))
	for i, a := range result.AppliedDeltas {
		out[i] = toDeltaPayload(a.Delta, a.MovementID)
	}
	return out
}

// NewInventorySyncedData builds the payload for a COMPLETED result
func NewInventorySyncedData(result *domain.WorkflowResult) InventorySyncedData {
	return InventorySyncedData{
		WorkflowID:      result.WorkflowID,
		TransactionID:   result.Transaction.ID,
		TransactionKind: string(result.Kind),
		BranchID:        result.Transaction.BranchID,
		AppliedDeltas:   appliedPayloads(result),
		CompletedAt:     result.CompletedAt.UTC(),
	}
}

// NewReconciliationRequiredData builds the payload for a PARTIALLY_COMPLETED result
func NewReconciliationRequiredData(result *domain.WorkflowResult) ReconciliationRequiredData {
	failed := make([]FailedDeltaPayload, len(result.FailedDeltas))
	for i, f := range result.FailedDeltas {
		failed[i] = FailedDeltaPayload{
			DeltaPayload: toDeltaPayload(f.Delta, ""),
			ErrorKind:    string(f.Error.Kind),
			ErrorMessage: f.Error.Message,
			StatusCode:   f.Error.StatusCode,
			Retryable:    f.Error.Kind.Retryable(),
		}
	}

	lines := make([]FailedLinePayload, len(result.FailedLines))
	for i, l := range result.FailedLines {
		lines[i] = FailedLinePayload{
			LineIndex:    l.LineIndex,
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			ErrorKind:    string(l.Error.Kind),
			ErrorMessage: l.Error.Message,
		}
	}

	return ReconciliationRequiredData{
		WorkflowID:      result.WorkflowID,
		TransactionID:   result.Transaction.ID,
		TransactionKind: string(result.Kind),
		BranchID:        result.Transaction.BranchID,
		AppliedDeltas:   appliedPayloads(result),
		FailedDeltas:    failed,
		FailedLines:     lines,
		CompletedAt:     result.CompletedAt.UTC(),
	}
}
