package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func newSerializer() *event.EventSerializer {
	s := event.NewEventSerializer()
	event.RegisterAllEvents(s)
	return s
}

func customerEvent() shared.DomainEvent {
	customer := &partner.Customer{Name: "Acme", Email: "billing@acme.test"}
	customer.ID = uuid.New()
	return partner.NewCustomerCreatedEvent(customer)
}

func TestNewKafkaForwarder_Validation(t *testing.T) {
	_, err := NewKafkaForwarder(nil, "topic", newSerializer(), nil)
	assert.Error(t, err)

	_, err = NewKafkaForwarder([]string{"localhost:9092"}, "", newSerializer(), nil)
	assert.Error(t, err)

	_, err = NewKafkaForwarder([]string{"localhost:9092"}, "topic", nil, nil)
	assert.Error(t, err)

	f, err := NewKafkaForwarder([]string{"localhost:9092"}, "invoicing.events", newSerializer(), nil)
	require.NoError(t, err)
	writer, ok := f.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "invoicing.events", writer.Topic)
	assert.Equal(t, kafka.RequireAll, writer.RequiredAcks)
	assert.Nil(t, f.EventTypes())
}

func TestKafkaForwarder_Handle(t *testing.T) {
	writer := new(MockWriter)
	serializer := newSerializer()
	f, err := NewKafkaForwarder([]string{"localhost:9092"}, "invoicing.events", serializer, nil, WithWriter(writer))
	require.NoError(t, err)

	evt := customerEvent()
	var written []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).([]kafka.Message)
			_, hasDeadline := args.Get(0).(context.Context).Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(nil)

	require.NoError(t, f.Handle(context.Background(), evt))

	require.Len(t, written, 1)
	msg := written[0]
	assert.Equal(t, evt.AggregateID().String(), string(msg.Key))
	assert.Equal(t, evt.OccurredAt().UTC(), msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte(partner.EventTypeCustomerCreated)})

	decoded, err := serializer.Deserialize(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, evt.EventID(), decoded.EventID())
	writer.AssertExpectations(t)
}

func TestKafkaForwarder_WriteFailure(t *testing.T) {
	writer := new(MockWriter)
	f, err := NewKafkaForwarder([]string{"localhost:9092"}, "invoicing.events", newSerializer(), nil,
		WithWriter(writer), WithWriteTimeout(time.Second))
	require.NoError(t, err)

	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err = f.Handle(context.Background(), customerEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoicing.events")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestKafkaForwarder_Close(t *testing.T) {
	writer := new(MockWriter)
	writer.On("Close").Return(nil)
	f, err := NewKafkaForwarder([]string{"localhost:9092"}, "t", newSerializer(), nil, WithWriter(writer))
	require.NoError(t, err)

	require.NoError(t, f.Close())
	writer.AssertExpectations(t)
}
