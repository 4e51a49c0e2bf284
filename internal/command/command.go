package command

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
)

// Default circuit configuration applied when the builder leaves a value
// unset.
const (
	DefaultTimeout                  = 3 * time.Second
	DefaultRequestVolumeThreshold   = 10
	DefaultErrorThresholdPercentage = 50
	DefaultSleepWindow              = 3 * time.Second
)

// Action is the guarded call. It receives the original execute arguments
// and a context carrying the command deadline. An action that outlives
// its deadline keeps running; its eventual outcome is discarded.
type Action func(ctx context.Context, args ...any) (any, error)

// Fallback produces the substitute outcome when the action is skipped
// (cause == nil) or failed unrecoverably (cause != nil). Its own failure
// propagates to the caller unmodified.
type Fallback func(ctx context.Context, cause error, args ...any) (any, error)

// ErrorFilter marks expected, benign errors. A filtered error reaches
// the caller directly, bypassing breaker accounting and fallback.
type ErrorFilter func(err error, args ...any) bool

// ErrorHandler may substitute the error seen by the filter, the breaker
// and the fallback. The substituted error replaces the original
// entirely.
type ErrorHandler func(err error) error

// Command is an immutable, fully validated call-site configuration.
// Build one per call site and reuse it across executions.
type Command struct {
	key                      string
	traceID                  string
	timeout                  time.Duration
	requestVolumeThreshold   int
	errorThresholdPercentage int
	sleepWindow              time.Duration
	action                   Action
	fallback                 Fallback
	errorFilter              ErrorFilter
	errorHandler             ErrorHandler
	loggingEnabled           bool
}

func (c *Command) Key() string {
	return c.key
}

func (c *Command) TraceID() string {
	return c.traceID
}

func (c *Command) settings() circuitbreaker.Settings {
	return circuitbreaker.Settings{
		RequestVolumeThreshold:   c.requestVolumeThreshold,
		ErrorThresholdPercentage: c.errorThresholdPercentage,
		SleepWindow:              c.sleepWindow,
	}
}

// Builder assembles a Command incrementally. Every setter is an
// idempotent overwrite; the configuration freezes at Build.
type Builder struct {
	key                      string
	traceID                  string
	timeout                  time.Duration
	requestVolumeThreshold   int
	errorThresholdPercentage int
	sleepWindow              time.Duration
	action                   Action
	fallback                 Fallback
	errorFilter              ErrorFilter
	errorHandler             ErrorHandler
	loggingEnabled           bool
}

// NewBuilder starts a command configuration for the given key. The key
// identifies the circuit shared by every command built with it.
func NewBuilder(key string) *Builder {
	return &Builder{
		key:                      key,
		timeout:                  DefaultTimeout,
		requestVolumeThreshold:   DefaultRequestVolumeThreshold,
		errorThresholdPercentage: DefaultErrorThresholdPercentage,
		sleepWindow:              DefaultSleepWindow,
		loggingEnabled:           true,
	}
}

func (b *Builder) TraceID(traceID string) *Builder {
	b.traceID = traceID
	return b
}

func (b *Builder) Timeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

func (b *Builder) RequestVolumeThreshold(threshold int) *Builder {
	b.requestVolumeThreshold = threshold
	return b
}

func (b *Builder) ErrorThresholdPercentage(percentage int) *Builder {
	b.errorThresholdPercentage = percentage
	return b
}

func (b *Builder) SleepWindow(window time.Duration) *Builder {
	b.sleepWindow = window
	return b
}

func (b *Builder) Action(action Action) *Builder {
	b.action = action
	return b
}

func (b *Builder) Fallback(fallback Fallback) *Builder {
	b.fallback = fallback
	return b
}

func (b *Builder) ErrorFilter(filter ErrorFilter) *Builder {
	b.errorFilter = filter
	return b
}

func (b *Builder) ErrorHandler(handler ErrorHandler) *Builder {
	b.errorHandler = handler
	return b
}

func (b *Builder) Logging(enabled bool) *Builder {
	b.loggingEnabled = enabled
	return b
}

// Build validates the configuration and freezes it into a Command.
// A missing key or action is a fatal configuration error: the command
// never executes. When no trace id was supplied a fresh UUID is
// generated so log entries stay correlatable.
func (b *Builder) Build() (*Command, error) {
	if err := b.validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	traceID := b.traceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	timeout := b.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Command{
		key:                      b.key,
		traceID:                  traceID,
		timeout:                  timeout,
		requestVolumeThreshold:   b.requestVolumeThreshold,
		errorThresholdPercentage: b.errorThresholdPercentage,
		sleepWindow:              b.sleepWindow,
		action:                   b.action,
		fallback:                 b.fallback,
		errorFilter:              b.errorFilter,
		errorHandler:             b.errorHandler,
		loggingEnabled:           b.loggingEnabled,
	}, nil
}

// builderConfig is the validatable view of a builder.
type builderConfig struct {
	Key                      string
	RequestVolumeThreshold   int
	ErrorThresholdPercentage int
	HasAction                bool
}

func (b *Builder) validate() error {
	cfg := builderConfig{
		Key:                      b.key,
		RequestVolumeThreshold:   b.requestVolumeThreshold,
		ErrorThresholdPercentage: b.errorThresholdPercentage,
		HasAction:                b.action != nil,
	}

	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Key,
			validation.Required.Error("command key is required"),
		),
		validation.Field(&cfg.RequestVolumeThreshold,
			validation.Min(0),
		),
		validation.Field(&cfg.ErrorThresholdPercentage,
			validation.Min(0),
			validation.Max(100),
		),
		validation.Field(&cfg.HasAction,
			validation.Required.Error("command action is required"),
		),
	)
}
