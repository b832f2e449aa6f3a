package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDoRequest_PropagatesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewServiceClients(&Config{CatalogServiceURL: server.URL})
	_, err := client.doRequest(ctx, http.MethodGet, server.URL+"/test", nil, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, captured.Get("traceparent"), "traceparent header should be present")
	traceID := span.SpanContext().TraceID().String()
	assert.Contains(t, captured.Get("traceparent"), traceID)
}

func TestDoRequest_WorksWithoutSpan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewServiceClients(&Config{CatalogServiceURL: server.URL})
	status, err := client.doRequest(context.Background(), http.MethodGet, server.URL+"/test", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestCall_PropagatesTraceWithBody(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"mv-1"}`))
	}))
	defer server.Close()

	client := NewServiceClients(&Config{InventoryServiceURL: server.URL})
	_, err := client.PostMovement(ctx, testDelta())

	require.NoError(t, err)
	assert.Equal(t, "application/json", captured.Get("Content-Type"))
	// The client span is a child of the caller's span, so the trace ID carries over.
	assert.Contains(t, captured.Get("traceparent"), span.SpanContext().TraceID().String())
}
