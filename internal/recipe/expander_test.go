package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func line(supplyItemID, perUnit, unit string) domain.RecipeLine {
	return domain.RecipeLine{
		SupplyItemID:    supplyItemID,
		QuantityPerUnit: decimal.RequireFromString(perUnit),
		Unit:            unit,
	}
}

func TestExpand_FlourAndMilk(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("GetProduct", mock.Anything, "pancake").Return(&domain.Product{
		ID:   "pancake",
		Name: "Pancake",
		Recipe: []domain.RecipeLine{
			line("flour", "0.2", "kg"),
			line("milk", "0.1", "l"),
		},
	}, nil)

	deltas, err := NewExpander(catalog, logging.Discard()).Expand(context.Background(), "pancake", 3)

	require.NoError(t, err)
	require.Len(t, deltas, 2)

	assert.Equal(t, "flour", deltas[0].SupplyItemID)
	assert.Equal(t, domain.DirectionOutbound, deltas[0].Direction)
	assert.True(t, decimal.RequireFromString("0.6").Equal(deltas[0].Quantity), deltas[0].Quantity.String())
	assert.Equal(t, "kg", deltas[0].Unit)

	assert.Equal(t, "milk", deltas[1].SupplyItemID)
	assert.True(t, decimal.RequireFromString("0.3").Equal(deltas[1].Quantity), deltas[1].Quantity.String())
	assert.True(t, decimal.RequireFromString("-0.3").Equal(deltas[1].Signed()))

	catalog.AssertExpectations(t)
}

func TestExpand_RejectsNonPositiveQuantityBeforeLookup(t *testing.T) {
	for _, qty := range []int{0, -1} {
		catalog := new(mockCatalog)

		deltas, err := NewExpander(catalog, logging.Discard()).Expand(context.Background(), "pancake", qty)

		assert.Nil(t, deltas)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		catalog.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	}
}

func TestExpand_CatalogFailure(t *testing.T) {
	remote := &domain.RemoteError{Kind: domain.KindRejected, Service: "catalog", Operation: "GetProduct", StatusCode: 404, Detail: "product not found"}
	catalog := new(mockCatalog)
	catalog.On("GetProduct", mock.Anything, "ghost").Return(nil, remote)

	_, err := NewExpander(catalog, logging.Discard()).Expand(context.Background(), "ghost", 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	var got *domain.RemoteError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, domain.KindRejected, domain.KindOf(err))
}

func TestExpand_EmptyRecipe(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("GetProduct", mock.Anything, "gift-card").Return(&domain.Product{ID: "gift-card"}, nil)

	deltas, err := NewExpander(catalog, logging.Discard()).Expand(context.Background(), "gift-card", 5)

	require.NoError(t, err)
	assert.NotNil(t, deltas)
	assert.Empty(t, deltas)
}

func TestExpand_SkipsNonPositivePerUnitLines(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("GetProduct", mock.Anything, "latte").Return(&domain.Product{
		ID: "latte",
		Recipe: []domain.RecipeLine{
			line("coffee_beans", "0.018", "kg"),
			line("sugar", "0", "kg"),
			line("cinnamon", "-0.001", "kg"),
			line("milk", "0.2", "l"),
		},
	}, nil)

	deltas, err := NewExpander(catalog, logging.Discard()).Expand(context.Background(), "latte", 2)

	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, "coffee_beans", deltas[0].SupplyItemID)
	assert.True(t, decimal.RequireFromString("0.036").Equal(deltas[0].Quantity))
	assert.Equal(t, "milk", deltas[1].SupplyItemID)
	for _, d := range deltas {
		assert.NoError(t, d.Validate())
	}
}
