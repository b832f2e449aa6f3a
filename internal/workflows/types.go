package workflows

import (
	"github.com/storefront-platform/storefront/internal/domain"
)

// Caller carries what the activities need to act on behalf of the
// submitting user. It travels in workflow history.
type Caller struct {
	Authorization string `json:"authorization,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// SaleWorkflowInput is the input of SaleWorkflow
type SaleWorkflowInput struct {
	Caller
	Sale domain.Sale `json:"sale"`
}

// PurchaseWorkflowInput is the input of PurchaseWorkflow
type PurchaseWorkflowInput struct {
	Caller
	PurchaseOrder domain.PurchaseOrder `json:"purchaseOrder"`
}

// CommitSaleInput is the input of the CommitSale activity
type CommitSaleInput struct {
	Caller
	Sale domain.Sale `json:"sale"`
}

// CommitPurchaseInput is the input of the CommitPurchase activity
type CommitPurchaseInput struct {
	Caller
	PurchaseOrder domain.PurchaseOrder `json:"purchaseOrder"`
}

// ExpandRecipeInput is the input of the ExpandRecipe activity
type ExpandRecipeInput struct {
	Caller
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ApplyInventoryDeltaInput is the input of the ApplyInventoryDelta activity
type ApplyInventoryDeltaInput struct {
	Caller
	WorkflowID string                `json:"workflowId"`
	Delta      domain.InventoryDelta `json:"delta"`
}

// PublishResultInput is the input of the PublishResult activity
type PublishResultInput struct {
	Caller
	Result domain.WorkflowResult `json:"result"`
}
