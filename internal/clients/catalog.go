package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/storefront-platform/storefront/internal/domain"
)

// GetProduct fetches a product and its recipe from the catalog API
func (c *ServiceClients) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	u := fmt.Sprintf("%s/api/v1/products/%s", c.config.CatalogServiceURL, url.PathEscape(productID))

	var resp ProductResponse
	if err := c.call(ctx, ServiceCatalog, "GetProduct", http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}
