package command

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
	"github.com/angeloszaimis/circuitguard/internal/metrics"
	"github.com/angeloszaimis/circuitguard/internal/overrides"
)

// componentTag marks fallback warnings in the logs.
const componentTag = "circuit-command"

// Executor drives commands through their circuits: admission check,
// deadline enforcement, error classification, breaker bookkeeping and
// fallback resolution. It owns no global state; registry and resolver
// are passed in explicitly.
type Executor struct {
	registry  *circuitbreaker.Registry
	overrides overrides.Resolver
	logger    *slog.Logger
	collector *metrics.Collector
}

type ExecutorOption func(*Executor)

// WithCollector attaches a metrics collector. Events are emitted with
// non-blocking sends so a saturated collector never stalls executions.
func WithCollector(collector *metrics.Collector) ExecutorOption {
	return func(e *Executor) {
		e.collector = collector
	}
}

func NewExecutor(registry *circuitbreaker.Registry, resolver overrides.Resolver, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if resolver == nil {
		resolver = overrides.None{}
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	e := &Executor{
		registry:  registry,
		overrides: resolver,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs the command once. The circuit is resolved fresh, the call
// is counted before the admission check (rejected calls count too), and
// the snapshot is committed exactly once on every path.
func (e *Executor) Execute(ctx context.Context, cmd *Command, args ...any) (any, error) {
	circuit := e.registry.Resolve(cmd.key, cmd.settings())
	circuit.RecordCall()

	if !circuit.Admits() {
		// Rejection at the gate is not an error, only a skipped call.
		e.registry.Commit(circuit)
		e.emit(metrics.EventCallRejected, cmd.key, 0)
		return e.resolveFallback(ctx, cmd, nil, args)
	}

	start := time.Now()
	result, err := e.runAction(ctx, cmd, args)
	elapsed := time.Since(start)

	if err == nil {
		circuit.RecordSuccess()
		e.registry.Commit(circuit)
		e.emit(metrics.EventActionSuccess, cmd.key, elapsed)
		return result, nil
	}

	if cmd.errorHandler != nil {
		// A nil substitution keeps the original error: handlers map
		// failures, they cannot swallow them.
		if substituted := cmd.errorHandler(err); substituted != nil {
			err = substituted
		}
	}

	if cmd.errorFilter != nil && cmd.errorFilter(err, args...) {
		// Expected error: skip breaker accounting and fallback entirely.
		e.registry.Commit(circuit)
		e.emit(metrics.EventErrorFiltered, cmd.key, elapsed)
		return nil, err
	}

	circuit.RecordFailure()
	e.registry.Commit(circuit)

	if IsTimeout(err) {
		e.emit(metrics.EventActionTimeout, cmd.key, elapsed)
	} else {
		e.emit(metrics.EventActionFailure, cmd.key, elapsed)
	}

	return e.resolveFallback(ctx, cmd, err, args)
}

// runAction races the action against the command deadline. The deadline
// is propagated through the context, but a losing action is abandoned,
// not forcibly terminated: its eventual result or error is discarded.
// Callers relying on forced cancellation must layer it themselves.
func (e *Executor) runAction(ctx context.Context, cmd *Command, args []any) (any, error) {
	timeout := e.commandTimeout(cmd)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}

	// Buffered so the abandoned goroutine can settle and exit.
	done := make(chan outcome, 1)

	go func() {
		result, err := cmd.action(ctx, args...)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Key: cmd.key, Timeout: timeout}
		}

		return nil, ctx.Err()
	}
}

// commandTimeout resolves the per-call deadline; a per-key override
// always wins over the builder value.
func (e *Executor) commandTimeout(cmd *Command) time.Duration {
	if timeout, ok := e.overrides.Timeout(cmd.key); ok {
		return timeout
	}

	return cmd.timeout
}

// resolveFallback produces the final outcome for a skipped or failed
// call. cause is nil when the gate rejected the call.
func (e *Executor) resolveFallback(ctx context.Context, cmd *Command, cause error, args []any) (any, error) {
	if cmd.loggingEnabled && cause != nil {
		e.logger.Warn("command falling back",
			slog.String("component", componentTag),
			slog.String("command_key", cmd.key),
			slog.String("trace_id", cmd.traceID),
			slog.Any("err", cause))
	}

	if cmd.fallback != nil {
		e.emit(metrics.EventFallbackInvoked, cmd.key, 0)
		return cmd.fallback(ctx, cause, args...)
	}

	if cause != nil {
		return nil, cause
	}

	return nil, &CircuitOpenError{Key: cmd.key}
}

func (e *Executor) emit(eventType metrics.EventType, key string, duration time.Duration) {
	if e.collector == nil {
		return
	}

	select {
	case e.collector.EventChannel() <- metrics.MetricEvent{
		Type:       eventType,
		Timestamp:  time.Now(),
		CommandKey: key,
		Duration:   duration,
	}:
	default:
		e.logger.Debug("metrics event dropped, collector channel full",
			slog.String("component", componentTag),
			slog.String("command_key", key),
			slog.String("event_type", string(eventType)))
	}
}
