package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront-platform/storefront/internal/domain"
)

// CreateSaleRequest represents the request to record a sale
type CreateSaleRequest struct {
	BranchID   string            `json:"branchId" binding:"not_blank" example:"1"`
	CustomerID string            `json:"customerId" binding:"not_blank" example:"C-77"`
	Lines      []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	Notes      string            `json:"notes" binding:"max=500" example:"table 4"`
}

// SaleLineRequest represents one product sold
type SaleLineRequest struct {
	ProductID string          `json:"productId" binding:"not_blank" example:"pancake"`
	Quantity  int             `json:"quantity" binding:"gt=0" example:"2"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"positive_decimal" example:"4.50"`
}

// ToDomain maps the request to a domain sale
func (r CreateSaleRequest) ToDomain() domain.Sale {
	lines := make([]domain.SaleLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.SaleLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return domain.Sale{
		BranchID:   r.BranchID,
		CustomerID: r.CustomerID,
		Lines:      lines,
		Notes:      r.Notes,
	}
}

// CreatePurchaseOrderRequest represents the request to record a purchase
// of one supply item
type CreatePurchaseOrderRequest struct {
	BranchID       string          `json:"branchId" binding:"not_blank" example:"3"`
	ProviderID     string          `json:"providerId" binding:"not_blank" example:"PROV-9"`
	SupplyItemID   string          `json:"supplyItemId" binding:"not_blank" example:"coffee_beans"`
	Quantity       decimal.Decimal `json:"quantity" binding:"positive_decimal" example:"12.5"`
	UnitPrice      decimal.Decimal `json:"unitPrice" binding:"positive_decimal" example:"18.00"`
	PurchaseDate   time.Time       `json:"purchaseDate" binding:"required" example:"2026-03-01T00:00:00Z"`
	ExpirationDate *time.Time      `json:"expirationDate,omitempty" example:"2026-09-01T00:00:00Z"`
	Notes          string          `json:"notes" binding:"max=500"`
}

// ToDomain maps the request to a domain purchase order
func (r CreatePurchaseOrderRequest) ToDomain() domain.PurchaseOrder {
	return domain.PurchaseOrder{
		BranchID:       r.BranchID,
		ProviderID:     r.ProviderID,
		SupplyItemID:   r.SupplyItemID,
		Quantity:       r.Quantity,
		UnitPrice:      r.UnitPrice,
		PurchaseDate:   r.PurchaseDate,
		ExpirationDate: r.ExpirationDate,
		Notes:          r.Notes,
	}
}
