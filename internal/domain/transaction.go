package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tags the two kinds of commercial transaction
type TransactionKind string

const (
	KindSale          TransactionKind = "SALE"
	KindPurchaseOrder TransactionKind = "PURCHASE_ORDER"
)

// Sale is a request to record a sale at a branch
type Sale struct {
	BranchID   string     `json:"branchId"`
	CustomerID string     `json:"customerId"`
	Lines      []SaleLine `json:"lines"`
	Notes      string     `json:"notes,omitempty"`
}

// SaleLine is one product sold within a sale
type SaleLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Total returns the client-side total of the sale. The commerce API
// computes the authoritative amount.
func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// PurchaseOrder is a request to record the purchase of one supply item
type PurchaseOrder struct {
	BranchID       string          `json:"branchId"`
	ProviderID     string          `json:"providerId"`
	SupplyItemID   string          `json:"supplyItemId"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	PurchaseDate   time.Time       `json:"purchaseDate"`
	ExpirationDate *time.Time      `json:"expirationDate,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// PersistedTransaction is the commerce API's record of a sale or purchase
type PersistedTransaction struct {
	ID          string          `json:"id"`
	Kind        TransactionKind `json:"kind"`
	BranchID    string          `json:"branchId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status,omitempty"`
	Lines       []PersistedLine `json:"lines,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PersistedLine is a sale line as stored by the commerce API
type PersistedLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleLinesForExpansion returns the lines that drive recipe expansion: the
// persisted lines when the commerce API echoed them, otherwise the
// submitted lines in their original order.
func SaleLinesForExpansion(sale Sale, persisted *PersistedTransaction) []PersistedLine {
	if persisted != nil && len(persisted.Lines) > 0 {
		return persisted.Lines
	}

	lines := make([]PersistedLine, len(sale.Lines))
	for i, l := range sale.Lines {
		lines[i] = PersistedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		}
	}
	return lines
}
