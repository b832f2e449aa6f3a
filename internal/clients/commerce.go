package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/storefront-platform/storefront/internal/domain"
)

// CreateSale records a sale in the commerce API
func (c *ServiceClients) CreateSale(ctx context.Context, sale domain.Sale) (*domain.PersistedTransaction, error) {
	url := fmt.Sprintf("%s/api/v1/sales", c.config.CommerceServiceURL)

	var resp SaleResponse
	if err := c.call(ctx, ServiceCommerce, "CreateSale", http.MethodPost, url, newCreateSaleRequest(sale), &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, invalidResponse(ServiceCommerce, "CreateSale", "sale id missing")
	}
	return resp.toDomain(), nil
}

// CreatePurchaseOrder records a purchase order in the commerce API
func (c *ServiceClients) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PersistedTransaction, error) {
	url := fmt.Sprintf("%s/api/v1/purchase-orders", c.config.CommerceServiceURL)

	var resp PurchaseOrderResponse
	if err := c.call(ctx, ServiceCommerce, "CreatePurchaseOrder", http.MethodPost, url, newCreatePurchaseOrderRequest(po), &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, invalidResponse(ServiceCommerce, "CreatePurchaseOrder", "purchase order id missing")
	}
	return resp.toDomain(), nil
}

func invalidResponse(service, operation, detail string) *domain.RemoteError {
	return &domain.RemoteError{
		Kind:       domain.KindInvalidResponse,
		Service:    service,
		Operation:  operation,
		StatusCode: http.StatusCreated,
		Detail:     detail,
	}
}
