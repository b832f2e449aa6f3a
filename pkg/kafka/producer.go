package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/storefront-platform/storefront/pkg/cloudevents"
	"github.com/storefront-platform/storefront/pkg/tracing"
)

// MessageWriter is the subset of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterFactory builds a writer for a topic
type WriterFactory func(topic string) MessageWriter

// Producer publishes CloudEvents to Kafka, one writer per topic
type Producer struct {
	mu        sync.Mutex
	writers   map[string]MessageWriter
	newWriter WriterFactory
}

// NewProducer creates a new Kafka producer backed by segmentio writers
func NewProducer(config *Config) *Producer {
	return NewProducerWithWriters(func(topic string) MessageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    config.BatchSize,
			BatchTimeout: config.BatchTimeout,
			WriteTimeout: config.WriteTimeout,
			RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
			Transport:    &kafka.Transport{ClientID: config.ClientID},
		}
	})
}

// NewProducerWithWriters creates a producer using the given writer factory
func NewProducerWithWriters(factory WriterFactory) *Producer {
	return &Producer{
		writers:   make(map[string]MessageWriter),
		newWriter: factory,
	}
}

func (p *Producer) getWriter(topic string) MessageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}
	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

// PublishEvent publishes a CloudEvent in structured mode, with the context
// attributes duplicated as ce-* headers. The subject is the message key so
// events for one transaction stay ordered. The trace context of ctx rides
// along in the headers.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.StorefrontCloudEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	tracing.InjectTraceContext(ctx, NewHeaderCarrier(&msg))

	if err := p.getWriter(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", topic, err)
	}
	return nil
}

func toMessage(event *cloudevents.StorefrontCloudEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
			{Key: "ce-type", Value: []byte(event.Type)},
			{Key: "ce-source", Value: []byte(event.Source)},
			{Key: "ce-id", Value: []byte(event.ID)},
			{Key: "ce-time", Value: []byte(event.Time.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte("application/cloudevents+json")},
		},
		Time: event.Time,
	}

	for name, value := range event.Extensions() {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "ce-" + name, Value: []byte(value)})
	}

	return msg, nil
}

// Close closes all writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
