// Package messaging forwards committed domain events to Kafka for
// downstream consumers.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by the forwarder
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder is a wildcard event handler that writes every event to a
// single topic keyed by aggregate ID, so events of one invoice stay ordered
// within a partition.
type KafkaForwarder struct {
	writer       MessageWriter
	topic        string
	serializer   *event.EventSerializer
	writeTimeout time.Duration
	logger       *zap.Logger
}

// KafkaForwarderOption is a functional option for KafkaForwarder
type KafkaForwarderOption func(*KafkaForwarder)

// WithWriter replaces the kafka writer, used by tests
func WithWriter(w MessageWriter) KafkaForwarderOption {
	return func(f *KafkaForwarder) {
		f.writer = w
	}
}

// WithWriteTimeout bounds each write
func WithWriteTimeout(d time.Duration) KafkaForwarderOption {
	return func(f *KafkaForwarder) {
		f.writeTimeout = d
	}
}

// NewKafkaForwarder creates a forwarder for brokers and topic
func NewKafkaForwarder(brokers []string, topic string, serializer *event.EventSerializer, logger *zap.Logger, opts ...KafkaForwarderOption) (*KafkaForwarder, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka forwarder requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka forwarder requires a topic")
	}
	if serializer == nil {
		return nil, errors.New("kafka forwarder requires a serializer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &KafkaForwarder{
		topic:        topic,
		serializer:   serializer,
		writeTimeout: 10 * time.Second,
		logger:       logger.Named("kafka"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	}
	return f, nil
}

// EventTypes returns nil so the forwarder receives every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle serializes evt and writes it synchronously
func (f *KafkaForwarder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(evt)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", evt.EventType(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(evt.AggregateID().String()),
		Value: payload,
		Time:  evt.OccurredAt().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType())},
			{Key: "event_id", Value: []byte(evt.EventID().String())},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", evt.EventType(), f.topic, err)
	}

	f.logger.Debug("Event forwarded",
		zap.String("topic", f.topic),
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()))
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
