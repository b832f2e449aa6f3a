package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront-platform/storefront/pkg/cloudevents"
)

type recordingWriter struct {
	topic    string
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer() (*Producer, map[string]*recordingWriter) {
	writers := make(map[string]*recordingWriter)
	p := NewProducerWithWriters(func(topic string) MessageWriter {
		w := &recordingWriter{topic: topic}
		writers[topic] = w
		return w
	})
	return p, writers
}

func testEvent() *cloudevents.StorefrontCloudEvent {
	return &cloudevents.StorefrontCloudEvent{
		SpecVersion:     cloudevents.SpecVersion,
		Type:            cloudevents.InventoryReconciliationRequired,
		Source:          cloudevents.SourceInventorySync,
		Subject:         "sale/S-1",
		ID:              "evt-1",
		Time:            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		DataContentType: "application/json",
		Data:            map[string]string{"transactionId": "S-1"},
		CorrelationID:   "corr-1",
		BranchID:        "3",
	}
}

func TestProducer_PublishEvent(t *testing.T) {
	p, writers := newTestProducer()

	err := p.PublishEvent(context.Background(), Topics.InventoryReconciliation, testEvent())
	require.NoError(t, err)

	w := writers[Topics.InventoryReconciliation]
	require.NotNil(t, w)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "sale/S-1", string(msg.Key))

	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "1.0", headers["ce-specversion"])
	assert.Equal(t, cloudevents.InventoryReconciliationRequired, headers["ce-type"])
	assert.Equal(t, "evt-1", headers["ce-id"])
	assert.Equal(t, "corr-1", headers["ce-storefrontcorrelationid"])
	assert.Equal(t, "3", headers["ce-storefrontbranchid"])
	assert.NotContains(t, headers, "ce-storefrontworkflowid")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "storefront.inventory.reconciliation-required", body["type"])
}

func TestProducer_ReusesWriterPerTopic(t *testing.T) {
	p, writers := newTestProducer()

	require.NoError(t, p.PublishEvent(context.Background(), "a", testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), "a", testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), "b", testEvent()))

	assert.Len(t, writers, 2)
	assert.Len(t, writers["a"].messages, 2)

	require.NoError(t, p.Close())
	assert.True(t, writers["a"].closed)
	assert.True(t, writers["b"].closed)
}

func TestProducer_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriters(func(topic string) MessageWriter {
		return &recordingWriter{err: boom}
	})

	err := p.PublishEvent(context.Background(), "a", testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestProducer_PropagatesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	p, writers := newTestProducer()
	require.NoError(t, p.PublishEvent(ctx, "a", testEvent()))

	msg := writers["a"].messages[0]
	carrier := NewHeaderCarrier(&msg)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", carrier.Get("traceparent"))
	assert.Contains(t, carrier.Keys(), "ce-type")
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	var msg kafka.Message
	carrier := NewHeaderCarrier(&msg)

	carrier.Set("k", "1")
	carrier.Set("k", "2")

	assert.Len(t, msg.Headers, 1)
	assert.Equal(t, "2", carrier.Get("k"))
	assert.Empty(t, carrier.Get("missing"))
}
