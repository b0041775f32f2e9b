package worker

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/metrics"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

// JSONPublisher is the outbound side of the activity queue.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// DeliveryRunner feeds queue messages to a handler until ctx ends.
type DeliveryRunner interface {
	Run(ctx context.Context, handle func(ctx context.Context, body []byte) error) error
}

// QueueSink publishes activity events to the broker and writes them directly
// when publishing fails.
type QueueSink struct {
	pub      JSONPublisher
	fallback service.ActivitySink
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewQueueSink(pub JSONPublisher, fallback service.ActivitySink, m *metrics.Metrics, log *zap.Logger) *QueueSink {
	return &QueueSink{pub: pub, fallback: fallback, metrics: m, log: log}
}

func (s *QueueSink) Record(ctx context.Context, ev service.ActivityEvent) error {
	if s.pub != nil {
		err := s.pub.PublishJSON(ctx, ev)
		if err == nil {
			s.count("queue")
			return nil
		}
		s.log.Warn("activity publish failed, writing directly",
			zap.String("project_id", ev.ProjectID.String()),
			zap.Error(err),
		)
	}
	s.count("direct")
	return s.fallback.Record(ctx, ev)
}

func (s *QueueSink) count(path string) {
	if s.metrics != nil {
		s.metrics.ActivityEvents.WithLabelValues(path).Inc()
	}
}

// ActivityConsumer persists queued activity events and fans them out to the
// project rooms through the recorder.
type ActivityConsumer struct {
	runner   DeliveryRunner
	recorder service.ActivitySink
	log      *zap.Logger
}

func NewActivityConsumer(runner DeliveryRunner, recorder service.ActivitySink, log *zap.Logger) *ActivityConsumer {
	return &ActivityConsumer{runner: runner, recorder: recorder, log: log}
}

// Handle decodes one delivery. A malformed body is an error so the message
// is rejected rather than requeued forever.
func (c *ActivityConsumer) Handle(ctx context.Context, body []byte) error {
	var ev service.ActivityEvent
	if err := sonic.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode activity event: %w", err)
	}
	return c.recorder.Record(ctx, ev)
}

// Run blocks until ctx is cancelled or the broker closes the channel.
func (c *ActivityConsumer) Run(ctx context.Context) error {
	c.log.Info("activity consumer started")
	err := c.runner.Run(ctx, c.Handle)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("activity consumer: %w", err)
	}
	c.log.Info("activity consumer stopped")
	return nil
}
