package clients

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront-platform/storefront/internal/domain"
)

// Commerce API

// CreateSaleRequest is the body of POST /api/v1/sales
type CreateSaleRequest struct {
	BranchID   string           `json:"branchId"`
	CustomerID string           `json:"customerId"`
	Lines      []SaleLineDetail `json:"lines"`
	Notes      string           `json:"notes,omitempty"`
}

// SaleLineDetail is one line of a sale on the wire
type SaleLineDetail struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	// Subtotal is computed by the commerce API; requests leave it out.
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
}

// SaleResponse is the commerce API's representation of a recorded sale
type SaleResponse struct {
	ID          string           `json:"id"`
	BranchID    string           `json:"branchId"`
	CustomerID  string           `json:"customerId"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Status      string           `json:"status"`
	Lines       []SaleLineDetail `json:"lines"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CreatePurchaseOrderRequest is the body of POST /api/v1/purchase-orders
type CreatePurchaseOrderRequest struct {
	BranchID       string          `json:"branchId"`
	ProviderID     string          `json:"providerId"`
	SupplyItemID   string          `json:"supplyItemId"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	PurchaseDate   time.Time       `json:"purchaseDate"`
	ExpirationDate *time.Time      `json:"expirationDate,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// PurchaseOrderResponse is the commerce API's representation of a recorded purchase
type PurchaseOrderResponse struct {
	ID           string          `json:"id"`
	BranchID     string          `json:"branchId"`
	ProviderID   string          `json:"providerId"`
	SupplyItemID string          `json:"supplyItemId"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Catalog API

// ProductResponse is a product and its recipe
type ProductResponse struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Recipe []RecipeLineResponse `json:"recipe"`
}

// RecipeLineResponse is one ingredient of a product recipe
type RecipeLineResponse struct {
	SupplyItemID    string          `json:"supplyItemId"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	Unit            string          `json:"unit,omitempty"`
}

// Inventory API

// CreateMovementRequest is the body of POST /api/v1/inventory/movements
type CreateMovementRequest struct {
	SupplyItemID    string          `json:"supplyItemId"`
	BranchID        string          `json:"branchId"`
	Direction       string          `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	OriginReference string          `json:"originReference"`
}

// MovementResponse is the inventory API's record of a posted movement
type MovementResponse struct {
	ID              string          `json:"id"`
	SupplyItemID    string          `json:"supplyItemId"`
	BranchID        string          `json:"branchId"`
	Direction       string          `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	OriginReference string          `json:"originReference"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func newCreateSaleRequest(sale domain.Sale) *CreateSaleRequest {
	lines := make([]SaleLineDetail, len(sale.Lines))
	for i, l := range sale.Lines {
		lines[i] = SaleLineDetail{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return &CreateSaleRequest{
		BranchID:   sale.BranchID,
		CustomerID: sale.CustomerID,
		Lines:      lines,
		Notes:      sale.Notes,
	}
}

func (r *SaleResponse) toDomain() *domain.PersistedTransaction {
	lines := make([]domain.PersistedLine, len(r.Lines))
	for i, l := range r.Lines {
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if l.Subtotal != nil {
			subtotal = *l.Subtotal
		}
		lines[i] = domain.PersistedLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    subtotal,
		}
	}
	return &domain.PersistedTransaction{
		ID:          r.ID,
		Kind:        domain.KindSale,
		BranchID:    r.BranchID,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		Lines:       lines,
		CreatedAt:   r.CreatedAt,
	}
}

func newCreatePurchaseOrderRequest(po domain.PurchaseOrder) *CreatePurchaseOrderRequest {
	return &CreatePurchaseOrderRequest{
		BranchID:       po.BranchID,
		ProviderID:     po.ProviderID,
		SupplyItemID:   po.SupplyItemID,
		Quantity:       po.Quantity,
		UnitPrice:      po.UnitPrice,
		PurchaseDate:   po.PurchaseDate,
		ExpirationDate: po.ExpirationDate,
		Notes:          po.Notes,
	}
}

func (r *PurchaseOrderResponse) toDomain() *domain.PersistedTransaction {
	return &domain.PersistedTransaction{
		ID:          r.ID,
		Kind:        domain.KindPurchaseOrder,
		BranchID:    r.BranchID,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

func (r *ProductResponse) toDomain() *domain.Product {
	recipe := make([]domain.RecipeLine, len(r.Recipe))
	for i, l := range r.Recipe {
		recipe[i] = domain.RecipeLine{
			SupplyItemID:    l.SupplyItemID,
			QuantityPerUnit: l.QuantityPerUnit,
			Unit:            l.Unit,
		}
	}
	return &domain.Product{ID: r.ID, Name: r.Name, Recipe: recipe}
}

func newCreateMovementRequest(d domain.InventoryDelta) *CreateMovementRequest {
	return &CreateMovementRequest{
		SupplyItemID:    d.SupplyItemID,
		BranchID:        d.BranchID,
		Direction:       string(d.Direction),
		Quantity:        d.Quantity,
		OriginReference: d.OriginReference,
	}
}

func (r *MovementResponse) toDomain() *domain.MovementRecord {
	return &domain.MovementRecord{
		ID:              r.ID,
		SupplyItemID:    r.SupplyItemID,
		BranchID:        r.BranchID,
		Direction:       domain.Direction(r.Direction),
		Quantity:        r.Quantity,
		OriginReference: r.OriginReference,
		CreatedAt:       r.CreatedAt,
	}
}
