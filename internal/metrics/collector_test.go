package metrics_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuitguard/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("EventChannel", func() {
		It("should return a write-only channel", func() {
			ch := collector.EventChannel()
			Expect(ch).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventActionSuccess", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventActionSuccess,
				Timestamp:  time.Now(),
				CommandKey: "fetch-user",
				Duration:   100 * time.Millisecond,
			}
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot()
			Expect(snap.Commands["fetch-user"].Successes).To(Equal(int64(1)))
			Expect(snap.Commands["fetch-user"].AvgLatency).To(Equal(100 * time.Millisecond))
		})

		It("should process EventActionTimeout", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventActionTimeout,
				Timestamp:  time.Now(),
				CommandKey: "fetch-user",
				Duration:   time.Second,
			}
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot()
			Expect(snap.Commands["fetch-user"].Timeouts).To(Equal(int64(1)))
		})

		It("should process EventCallRejected", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventCallRejected,
				Timestamp:  time.Now(),
				CommandKey: "fetch-user",
			}
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot()
			Expect(snap.Commands["fetch-user"].Rejections).To(Equal(int64(1)))
		})

		It("should process a full execution event sequence", func() {
			collector.Start(ctx)

			events := []metrics.MetricEvent{
				{
					Type:       metrics.EventActionFailure,
					Timestamp:  time.Now(),
					CommandKey: "fetch-user",
					Duration:   50 * time.Millisecond,
				},
				{
					Type:       metrics.EventFallbackInvoked,
					Timestamp:  time.Now(),
					CommandKey: "fetch-user",
				},
				{
					Type:       metrics.EventErrorFiltered,
					Timestamp:  time.Now(),
					CommandKey: "fetch-user",
					Duration:   5 * time.Millisecond,
				},
			}

			for _, event := range events {
				collector.EventChannel() <- event
			}
			time.Sleep(20 * time.Millisecond)

			snap := collector.Snapshot()
			cm := snap.Commands["fetch-user"]
			Expect(cm.Failures).To(Equal(int64(1)))
			Expect(cm.Fallbacks).To(Equal(int64(1)))
			Expect(cm.Filtered).To(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			collector.Start(ctx)

			// Send events before cancellation
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type:       metrics.EventActionSuccess,
					Timestamp:  time.Now(),
					CommandKey: "fetch-user",
					Duration:   time.Millisecond,
				}
			}

			cancel()
			time.Sleep(20 * time.Millisecond)

			snap := collector.Snapshot()
			// All events should be processed via drain
			Expect(snap.Commands["fetch-user"].Successes).To(Equal(int64(5)))
		})
	})

	Describe("Handler", func() {
		It("should return a valid http.HandlerFunc", func() {
			handler := collector.Handler()
			Expect(handler).NotTo(BeNil())
		})
	})
})
