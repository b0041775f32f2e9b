package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return a.Get(0).(amqp.Queue), a.Error(1)
}

func (m *MockChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return m.Called(prefetchCount, prefetchSize, global).Error(0)
}

func (m *MockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	a := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(<-chan amqp.Delivery), a.Error(1)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

func newTestConsumer(ch channel, openErr error) *Consumer {
	return &Consumer{
		open: func() (channel, error) {
			if openErr != nil {
				return nil, openErr
			}
			return ch, nil
		},
		queue:    "activity",
		prefetch: 5,
		log:      zap.NewNop(),
	}
}

func expectConsume(ch *MockChannel, deliveries <-chan amqp.Delivery) {
	ch.On("QueueDeclare", "activity", true, false, false, false, mock.Anything).Return(amqp.Queue{Name: "activity"}, nil)
	ch.On("Qos", 5, 0, false).Return(nil)
	ch.On("Consume", "activity", "", false, false, false, false, mock.Anything).Return(deliveries, nil)
	ch.On("Close").Return(nil)
}

func TestConsumer_AcksAndNacks(t *testing.T) {
	ack := &MockAcknowledger{}
	ack.On("Ack", uint64(1), false).Return(nil).Once()
	ack.On("Nack", uint64(2), false, false).Return(nil).Once()

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"ok":true}`)}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`broken`)}
	close(deliveries)

	ch := &MockChannel{}
	expectConsume(ch, deliveries)

	var seen []string
	err := newTestConsumer(ch, nil).Run(context.Background(), func(_ context.Context, body []byte) error {
		seen = append(seen, string(body))
		if string(body) == "broken" {
			return errors.New("decode activity")
		}
		return nil
	})

	assert.EqualError(t, err, "delivery channel closed")
	assert.Equal(t, []string{`{"ok":true}`, "broken"}, seen)
	ack.AssertExpectations(t)
	ch.AssertExpectations(t)
}

func TestConsumer_StopsOnContext(t *testing.T) {
	ch := &MockChannel{}
	expectConsume(ch, make(chan amqp.Delivery))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newTestConsumer(ch, nil).Run(ctx, func(context.Context, []byte) error { return nil })
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	ch.AssertCalled(t, "Close")
}

func TestConsumer_SetupErrors(t *testing.T) {
	noop := func(context.Context, []byte) error { return nil }

	t.Run("open", func(t *testing.T) {
		err := newTestConsumer(nil, errors.New("connection closed")).Run(context.Background(), noop)
		assert.ErrorContains(t, err, "open channel")
	})

	t.Run("declare", func(t *testing.T) {
		ch := &MockChannel{}
		ch.On("QueueDeclare", "activity", true, false, false, false, mock.Anything).Return(amqp.Queue{}, errors.New("access refused"))
		ch.On("Close").Return(nil)

		err := newTestConsumer(ch, nil).Run(context.Background(), noop)
		assert.ErrorContains(t, err, "declare queue activity")
		ch.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("qos", func(t *testing.T) {
		ch := &MockChannel{}
		ch.On("QueueDeclare", "activity", true, false, false, false, mock.Anything).Return(amqp.Queue{Name: "activity"}, nil)
		ch.On("Qos", 5, 0, false).Return(errors.New("not allowed"))
		ch.On("Close").Return(nil)

		err := newTestConsumer(ch, nil).Run(context.Background(), noop)
		assert.ErrorContains(t, err, "set qos")
	})
}

func TestPublisher(t *testing.T) {
	ch := &MockChannel{}
	ch.On("QueueDeclare", "activity", true, false, false, false, mock.Anything).Return(amqp.Queue{Name: "activity"}, nil)
	ch.On("PublishWithContext", mock.Anything, "", "activity", false, false, mock.MatchedBy(func(p amqp.Publishing) bool {
		return p.ContentType == "application/json" && p.DeliveryMode == amqp.Persistent && string(p.Body) == `{"event":"task_completed"}`
	})).Return(nil).Once()
	ch.On("PublishWithContext", mock.Anything, "", "activity", false, false, mock.Anything).Return(amqp.ErrClosed)
	ch.On("Close").Return(nil)

	p, err := newPublisher(ch, "activity", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.PublishJSON(ctx, map[string]string{"event": "task_completed"}))

	err = p.PublishJSON(ctx, map[string]string{"event": "task_completed"})
	assert.ErrorIs(t, err, amqp.ErrClosed)

	err = p.PublishJSON(ctx, make(chan int))
	assert.ErrorContains(t, err, "marshal message")

	require.NoError(t, p.Close())
	ch.AssertExpectations(t)
}

func TestNewPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(nil, "activity", zap.NewNop())
	assert.Error(t, err)

	ch := &MockChannel{}
	ch.On("QueueDeclare", "activity", true, false, false, false, mock.Anything).Return(amqp.Queue{}, errors.New("precondition failed"))
	ch.On("Close").Return(nil)

	_, err = newPublisher(ch, "activity", zap.NewNop())
	assert.ErrorContains(t, err, "declare queue activity")
	ch.AssertCalled(t, "Close")
}
