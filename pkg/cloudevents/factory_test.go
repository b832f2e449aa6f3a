package cloudevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/pkg/logging"
)

func TestCreateEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC-3", -3*60*60))
	f := NewEventFactory(SourceInventorySync)
	f.now = func() time.Time { return at }

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	event := f.CreateEvent(ctx, InventorySynced, "sale/S-1", map[string]string{"transactionId": "S-1"})

	assert.Equal(t, SpecVersion, event.SpecVersion)
	assert.Equal(t, InventorySynced, event.Type)
	assert.Equal(t, SourceInventorySync, event.Source)
	assert.Equal(t, "sale/S-1", event.Subject)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, at.UTC(), event.Time)
	assert.Equal(t, time.UTC, event.Time.Location())
	assert.Equal(t, "corr-9", event.CorrelationID)
	assert.Empty(t, event.TraceParent)

	other := f.CreateEvent(ctx, InventorySynced, "sale/S-1", nil)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestCreateEvent_CarriesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	event := NewEventFactory(SourceInventorySync).CreateEvent(ctx, InventoryReconciliationRequired, "purchase/P-1", nil)

	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", event.TraceParent)
	assert.Equal(t, event.TraceParent, event.Extensions()["traceparent"])
}

func TestExtensions_OmitsEmpty(t *testing.T) {
	event := &StorefrontCloudEvent{BranchID: "3", WorkflowID: "sale-1"}

	assert.Equal(t, map[string]string{
		"storefrontbranchid":   "3",
		"storefrontworkflowid": "sale-1",
	}, event.Extensions())
}
