package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sign of an inventory movement
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// MaxOriginReferenceLength bounds the audit string sent to the inventory API
const MaxOriginReferenceLength = 255

// InventoryDelta is one stock adjustment of one supply item at one branch.
// Quantity is always positive; Direction carries the sign.
type InventoryDelta struct {
	SupplyItemID    string          `json:"supplyItemId"`
	BranchID        string          `json:"branchId"`
	Direction       Direction       `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit,omitempty"`
	OriginReference string          `json:"originReference"`
}

// Signed returns the quantity with the direction applied
func (d InventoryDelta) Signed() decimal.Decimal {
	if d.Direction == DirectionOutbound {
		return d.Quantity.Neg()
	}
	return d.Quantity
}

// Validate checks the delta can be posted
func (d InventoryDelta) Validate() error {
	if d.SupplyItemID == "" {
		return fmt.Errorf("%w: supply item is required", ErrValidation)
	}
	if !d.Quantity.IsPositive() {
		return fmt.Errorf("%w: delta quantity %s for %s", ErrInvalidQuantity, d.Quantity, d.SupplyItemID)
	}
	if d.Direction != DirectionInbound && d.Direction != DirectionOutbound {
		return fmt.Errorf("%w: unknown direction %q", ErrValidation, d.Direction)
	}
	return nil
}

// MovementRecord is the inventory API's record of a posted delta
type MovementRecord struct {
	ID              string          `json:"id"`
	SupplyItemID    string          `json:"supplyItemId"`
	BranchID        string          `json:"branchId"`
	Direction       Direction       `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	OriginReference string          `json:"originReference"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PurchaseDelta maps a recorded purchase order to its single inbound delta
func PurchaseDelta(po PurchaseOrder, persisted *PersistedTransaction) InventoryDelta {
	return InventoryDelta{
		SupplyItemID:    po.SupplyItemID,
		BranchID:        po.BranchID,
		Direction:       DirectionInbound,
		Quantity:        po.Quantity,
		OriginReference: PurchaseOriginReference(persisted.ID, po),
	}
}

// StampSaleDeltas sets the branch and origin reference on the deltas
// expanded from one sale line.
func StampSaleDeltas(deltas []InventoryDelta, branchID, saleID string, line PersistedLine) []InventoryDelta {
	ref := SaleOriginReference(saleID, line)
	out := make([]InventoryDelta, len(deltas))
	for i, d := range deltas {
		d.BranchID = branchID
		d.OriginReference = ref
		out[i] = d
	}
	return out
}

// SaleOriginReference formats "Sale #<id>: <qty> x <product>"
func SaleOriginReference(saleID string, line PersistedLine) string {
	product := line.ProductName
	if product == "" {
		product = line.ProductID
	}
	return truncateRunes(fmt.Sprintf("Sale #%s: %d x %s", saleID, line.Quantity, product), MaxOriginReferenceLength)
}

// PurchaseOriginReference formats "Purchase #<id>: provider <providerId>[ - notes]"
func PurchaseOriginReference(purchaseID string, po PurchaseOrder) string {
	ref := fmt.Sprintf("Purchase #%s: provider %s", purchaseID, po.ProviderID)
	if po.Notes != "" {
		ref += " - " + po.Notes
	}
	return truncateRunes(ref, MaxOriginReferenceLength)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
