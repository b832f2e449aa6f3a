package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/storefront-platform/storefront/internal/domain"
)

// PostMovement applies one inventory delta through the inventory API. The
// API has no idempotency key, so a retried post may apply twice.
func (c *ServiceClients) PostMovement(ctx context.Context, delta domain.InventoryDelta) (*domain.MovementRecord, error) {
	url := fmt.Sprintf("%s/api/v1/inventory/movements", c.config.InventoryServiceURL)

	var resp MovementResponse
	if err := c.call(ctx, ServiceInventory, "PostMovement", http.MethodPost, url, newCreateMovementRequest(delta), &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}
