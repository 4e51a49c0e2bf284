// Package metrics provides real-time metrics collection for guarded
// commands.
//
// It uses a channel-based event pipeline to asynchronously collect
// metrics about:
//   - Executions, successes, failures and timeouts per command key
//   - Gate rejections, fallback invocations and filtered errors
//   - Action latencies with percentile calculations (P50, P95, P99)
//
// The collector runs in a dedicated goroutine and processes events
// without blocking the execution path. Events are sent via buffered
// channels with non-blocking semantics so a saturated collector never
// slows commands down.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	// Emit events during command execution
//	collector.EventChannel() <- metrics.MetricEvent{
//		Type:       metrics.EventActionSuccess,
//		CommandKey: "fetch-user",
//		Duration:   150 * time.Millisecond,
//	}
//
//	// Get metrics snapshot
//	snapshot := collector.Snapshot()
//
// The package provides thread-safe metrics storage using sync.RWMutex
// and supports graceful shutdown with event draining to prevent data
// loss.
package metrics
