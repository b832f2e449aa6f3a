package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/resilience"
)

func testDelta() domain.InventoryDelta {
	return domain.InventoryDelta{
		SupplyItemID:    "coffee_beans",
		BranchID:        "3",
		Direction:       domain.DirectionOutbound,
		Quantity:        decimal.RequireFromString("0.036"),
		OriginReference: "Sale #S-1: 2 x Latte",
	}
}

func newTestClients(t *testing.T, handler http.HandlerFunc) *ServiceClients {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewServiceClients(&Config{
		CommerceServiceURL:  server.URL,
		CatalogServiceURL:   server.URL,
		InventoryServiceURL: server.URL,
	}, WithLogger(logging.Discard()), WithHTTPClient(server.Client()))
}

func TestCreateSale(t *testing.T) {
	var body CreateSaleRequest
	var path, method string
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": "S-1",
			"branchId": "3",
			"customerId": "C-9",
			"totalAmount": "9.00",
			"status": "COMPLETED",
			"createdAt": "2024-01-15T10:30:00Z",
			"lines": [{"productId": "latte", "productName": "Latte", "quantity": 2, "unitPrice": "4.50", "subtotal": "9.00"}]
		}`))
	})

	sale := domain.Sale{
		BranchID:   "3",
		CustomerID: "C-9",
		Lines:      []domain.SaleLine{{ProductID: "latte", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50")}},
	}
	persisted, err := clients.CreateSale(context.Background(), sale)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/v1/sales", path)
	assert.Equal(t, "C-9", body.CustomerID)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, 2, body.Lines[0].Quantity)

	assert.Equal(t, "S-1", persisted.ID)
	assert.Equal(t, domain.KindSale, persisted.Kind)
	assert.True(t, decimal.RequireFromString("9").Equal(persisted.TotalAmount))
	require.Len(t, persisted.Lines, 1)
	assert.Equal(t, "Latte", persisted.Lines[0].ProductName)
	assert.True(t, decimal.RequireFromString("9").Equal(persisted.Lines[0].Subtotal))
}

func TestCreateSale_RequestLinesCarryNoSubtotal(t *testing.T) {
	var body map[string]any
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": "S-2",
			"branchId": "3",
			"totalAmount": "9",
			"createdAt": "2024-01-15T10:30:00Z",
			"lines": [{"productId": "latte", "quantity": 3, "unitPrice": "3"}]
		}`))
	})

	persisted, err := clients.CreateSale(context.Background(), domain.Sale{
		BranchID:   "3",
		CustomerID: "C-9",
		Lines:      []domain.SaleLine{{ProductID: "latte", Quantity: 3, UnitPrice: decimal.RequireFromString("3")}},
	})

	require.NoError(t, err)
	lines, ok := body["lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.NotContains(t, line, "subtotal")
	assert.Equal(t, "3", line["unitPrice"])

	require.Len(t, persisted.Lines, 1)
	assert.True(t, decimal.RequireFromString("9").Equal(persisted.Lines[0].Subtotal))
}

func TestCreatePurchaseOrder(t *testing.T) {
	var body map[string]any
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/purchase-orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "P-7", "branchId": "3", "totalAmount": "60", "createdAt": "2024-01-15T10:30:00Z"}`))
	})

	po := domain.PurchaseOrder{
		BranchID:     "3",
		ProviderID:   "prov-1",
		SupplyItemID: "milk",
		Quantity:     decimal.RequireFromString("20"),
		UnitPrice:    decimal.RequireFromString("3"),
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	persisted, err := clients.CreatePurchaseOrder(context.Background(), po)

	require.NoError(t, err)
	assert.Equal(t, "P-7", persisted.ID)
	assert.Equal(t, domain.KindPurchaseOrder, persisted.Kind)
	assert.Equal(t, "20", body["quantity"])
	assert.Equal(t, "milk", body["supplyItemId"])
	assert.NotContains(t, body, "expirationDate")
}

func TestCreateSale_MissingIDIsInvalidResponse(t *testing.T) {
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status": "COMPLETED"}`))
	})

	_, err := clients.CreateSale(context.Background(), domain.Sale{BranchID: "3"})

	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidResponse, domain.KindOf(err))
}

func TestGetProduct(t *testing.T) {
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/products/latte", r.URL.Path)
		w.Write([]byte(`{
			"id": "latte",
			"name": "Latte",
			"recipe": [
				{"supplyItemId": "coffee_beans", "quantityPerUnit": 0.018, "unit": "kg"},
				{"supplyItemId": "milk", "quantityPerUnit": "0.2", "unit": "l"}
			]
		}`))
	})

	product, err := clients.GetProduct(context.Background(), "latte")

	require.NoError(t, err)
	assert.Equal(t, "Latte", product.Name)
	require.Len(t, product.Recipe, 2)
	assert.True(t, decimal.RequireFromString("0.018").Equal(product.Recipe[0].QuantityPerUnit))
	assert.True(t, decimal.RequireFromString("0.2").Equal(product.Recipe[1].QuantityPerUnit))
}

func TestPostMovement(t *testing.T) {
	var body CreateMovementRequest
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/movements", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "mv-1", "supplyItemId": "coffee_beans", "branchId": "3", "direction": "OUTBOUND", "quantity": "0.036"}`))
	})

	record, err := clients.PostMovement(context.Background(), testDelta())

	require.NoError(t, err)
	assert.Equal(t, "mv-1", record.ID)
	assert.Equal(t, domain.DirectionOutbound, record.Direction)
	assert.Equal(t, "OUTBOUND", body.Direction)
	assert.True(t, decimal.RequireFromString("0.036").Equal(body.Quantity))
	assert.Equal(t, "Sale #S-1: 2 x Latte", body.OriginReference)
}

func TestCall_ForwardsAuthorizationAndCorrelation(t *testing.T) {
	var captured http.Header
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.Write([]byte(`{"id": "latte", "name": "Latte", "recipe": []}`))
	})

	ctx := WithAuthorization(context.Background(), "Bearer abc")
	ctx = logging.ContextWithCorrelationID(ctx, "corr-1")
	_, err := clients.GetProduct(ctx, "latte")

	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", captured.Get("Authorization"))
	assert.Equal(t, "corr-1", captured.Get("X-Correlation-ID"))
	assert.Equal(t, "application/json", captured.Get("Accept"))
}

func TestCall_NoAuthorizationHeaderWithoutToken(t *testing.T) {
	var captured http.Header
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.Write([]byte(`{"id": "latte"}`))
	})

	_, err := clients.GetProduct(context.Background(), "latte")

	require.NoError(t, err)
	assert.Empty(t, captured.Get("Authorization"))
}

func TestCall_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.ErrorKind
		wantDetail string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, domain.KindUnauthorized, "token expired"},
		{"forbidden", http.StatusForbidden, ``, domain.KindUnauthorized, ""},
		{"bad request", http.StatusBadRequest, `{"message":"insufficient stock"}`, domain.KindRejected, "insufficient stock"},
		{"not found", http.StatusNotFound, `{"error":"product not found"}`, domain.KindRejected, "product not found"},
		{"conflict plain text", http.StatusConflict, "duplicate", domain.KindRejected, "duplicate"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":"negative stock"}`, domain.KindRejected, "negative stock"},
		{"rate limited", http.StatusTooManyRequests, ``, domain.KindNetworkUnavailable, ""},
		{"server error", http.StatusInternalServerError, `oops`, domain.KindNetworkUnavailable, "oops"},
		{"bad gateway", http.StatusBadGateway, ``, domain.KindNetworkUnavailable, ""},
		{"undecodable success", http.StatusOK, `<html>`, domain.KindInvalidResponse, ""},
		{"empty success", http.StatusOK, ``, domain.KindInvalidResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := clients.GetProduct(context.Background(), "latte")

			require.Error(t, err)
			var remote *domain.RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, tt.wantKind, remote.Kind)
			assert.Equal(t, ServiceCatalog, remote.Service)
			assert.Equal(t, "GetProduct", remote.Operation)
			assert.Equal(t, tt.status, remote.StatusCode)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, remote.Detail)
			}
		})
	}
}

func TestCall_TimeoutIsNetworkUnavailable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	clients := NewServiceClients(&Config{
		InventoryServiceURL: server.URL,
		Timeout:             50 * time.Millisecond,
	}, WithLogger(logging.Discard()))

	_, err := clients.PostMovement(context.Background(), testDelta())

	require.Error(t, err)
	assert.Equal(t, domain.KindNetworkUnavailable, domain.KindOf(err))
	assert.True(t, domain.KindOf(err).Retryable())
}

func TestCall_UnreachableIsNetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	clients := NewServiceClients(&Config{CommerceServiceURL: url}, WithLogger(logging.Discard()))

	_, err := clients.CreateSale(context.Background(), domain.Sale{BranchID: "3"})

	require.Error(t, err)
	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, domain.KindNetworkUnavailable, remote.Kind)
	assert.Zero(t, remote.StatusCode)
}

func TestCall_CancelledContext(t *testing.T) {
	clients := newTestClients(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := clients.GetProduct(ctx, "latte")

	require.Error(t, err)
	assert.Equal(t, domain.KindCancelled, domain.KindOf(err))
}

func TestCall_BreakerOpensOnlyOnNetworkFailures(t *testing.T) {
	status := http.StatusBadRequest
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	defer server.Close()

	breaker := resilience.DefaultCircuitBreakerConfig("template")
	breaker.FailureThreshold = 2
	breaker.MinRequestsToTrip = 0
	registry := resilience.NewCircuitBreakerRegistry(logging.Discard().Logger)
	clients := NewServiceClients(&Config{
		InventoryServiceURL: server.URL,
		Breaker:             breaker,
	}, WithLogger(logging.Discard()), WithBreakerRegistry(registry))

	// Rejections do not count against the backend.
	for i := 0; i < 3; i++ {
		_, err := clients.PostMovement(context.Background(), testDelta())
		assert.Equal(t, domain.KindRejected, domain.KindOf(err))
	}
	assert.Equal(t, gobreaker.StateClosed, clients.breakers[ServiceInventory].State())

	status = http.StatusServiceUnavailable
	for i := 0; i < 2; i++ {
		_, err := clients.PostMovement(context.Background(), testDelta())
		assert.Equal(t, domain.KindNetworkUnavailable, domain.KindOf(err))
	}
	assert.Equal(t, gobreaker.StateOpen, clients.breakers[ServiceInventory].State())
	assert.Same(t, registry, clients.Breakers())
	assert.True(t, registry.AnyOpen())

	before := calls
	_, err := clients.PostMovement(context.Background(), testDelta())
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, domain.KindNetworkUnavailable, domain.KindOf(err))
	assert.Equal(t, before, calls, "open breaker must not reach the backend")

	// Other backends keep their own breaker.
	assert.Equal(t, gobreaker.StateClosed, clients.breakers[ServiceCatalog].State())
}

func TestAuthorizationContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, AuthorizationFromContext(ctx))
	assert.Equal(t, ctx, WithAuthorization(ctx, ""))
	assert.Equal(t, "Bearer x", AuthorizationFromContext(WithAuthorization(ctx, "Bearer x")))
}

func TestErrorDetail_Truncates(t *testing.T) {
	long := make([]byte, 2*maxErrorDetail)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, errorDetail(long), maxErrorDetail)
}
