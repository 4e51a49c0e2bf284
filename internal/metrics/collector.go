package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventActionSuccess   EventType = "action_success"
	EventActionFailure   EventType = "action_failure"
	EventActionTimeout   EventType = "action_timeout"
	EventCallRejected    EventType = "call_rejected"
	EventErrorFiltered   EventType = "error_filtered"
	EventFallbackInvoked EventType = "fallback_invoked"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	CommandKey string
	Duration   time.Duration
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventActionSuccess:
		c.metrics.RecordSuccess(event.CommandKey, event.Duration)

	case EventActionFailure:
		c.metrics.RecordFailure(event.CommandKey, event.Duration)

	case EventActionTimeout:
		c.metrics.RecordTimeout(event.CommandKey, event.Duration)

	case EventCallRejected:
		c.metrics.RecordRejection(event.CommandKey)

	case EventErrorFiltered:
		c.metrics.RecordFiltered(event.CommandKey, event.Duration)

	case EventFallbackInvoked:
		c.metrics.RecordFallback(event.CommandKey)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
