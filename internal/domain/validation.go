package domain

import (
	"fmt"
	"strings"
)

type fieldErrors map[string]string

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// Validate rejects a sale that must not reach the commerce API
func (s Sale) Validate() error {
	errs := fieldErrors{}
	errs.require("branchId", s.BranchID)
	errs.require("customerId", s.CustomerID)

	if len(s.Lines) == 0 {
		errs["lines"] = "must contain at least 1 line"
	}
	for i, line := range s.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		errs.require(prefix+"productId", line.ProductID)
		if line.Quantity <= 0 {
			errs[prefix+"quantity"] = "must be greater than 0"
		}
		if !line.UnitPrice.IsPositive() {
			errs[prefix+"unitPrice"] = "must be greater than 0"
		}
	}

	return errs.err()
}

// Validate rejects a purchase order that must not reach the commerce API
func (p PurchaseOrder) Validate() error {
	errs := fieldErrors{}
	errs.require("branchId", p.BranchID)
	errs.require("providerId", p.ProviderID)
	errs.require("supplyItemId", p.SupplyItemID)

	if !p.Quantity.IsPositive() {
		errs["quantity"] = "must be greater than 0"
	}
	if !p.UnitPrice.IsPositive() {
		errs["unitPrice"] = "must be greater than 0"
	}
	if p.PurchaseDate.IsZero() {
		errs["purchaseDate"] = "is required"
	} else if p.ExpirationDate != nil && p.ExpirationDate.Before(p.PurchaseDate) {
		errs["expirationDate"] = "must not be before purchaseDate"
	}

	return errs.err()
}
