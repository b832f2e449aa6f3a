// Package recipe turns units sold into the supply-item deltas they consume.
package recipe

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
)

// CatalogResolver looks up a product and its recipe. Lookups are read-through
// with no cache; every expansion sees the catalog as it is now.
type CatalogResolver interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// Expander expands sold products into OUTBOUND inventory deltas
type Expander struct {
	catalog CatalogResolver
	logger  *logging.Logger
}

// NewExpander creates a new Expander
func NewExpander(catalog CatalogResolver, logger *logging.Logger) *Expander {
	if logger == nil {
		logger = logging.FromSlog(nil)
	}
	return &Expander{
		catalog: catalog,
		logger:  logger.WithComponent("recipe-expander"),
	}
}

// Expand returns one OUTBOUND delta per recipe line of productID, in recipe
// order, with quantity quantityPerUnit * quantitySold. The deltas carry no
// branch or origin reference; the caller stamps them.
//
// A product without recipe lines yields an empty slice and no error.
func (e *Expander) Expand(ctx context.Context, productID string, quantitySold int) ([]domain.InventoryDelta, error) {
	if quantitySold <= 0 {
		return nil, fmt.Errorf("%w: %d units of %s", domain.ErrInvalidQuantity, quantitySold, productID)
	}

	product, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s: %w", domain.ErrCatalogUnavailable, productID, err)
	}

	return e.expandRecipe(ctx, product.RecipeOf(), quantitySold), nil
}

func (e *Expander) expandRecipe(ctx context.Context, recipe domain.Recipe, quantitySold int) []domain.InventoryDelta {
	sold := decimal.NewFromInt(int64(quantitySold))
	deltas := make([]domain.InventoryDelta, 0, len(recipe.Lines))

	for _, line := range recipe.Lines {
		if !line.QuantityPerUnit.IsPositive() {
			e.logger.WithContext(ctx).Warn("Skipping recipe line with non-positive quantity",
				"productId", recipe.ProductID,
				"supplyItemId", line.SupplyItemID,
				"quantityPerUnit", line.QuantityPerUnit.String(),
			)
			continue
		}

		deltas = append(deltas, domain.InventoryDelta{
			SupplyItemID: line.SupplyItemID,
			Direction:    domain.DirectionOutbound,
			Quantity:     line.QuantityPerUnit.Mul(sold),
			Unit:         line.Unit,
		})
	}

	return deltas
}
