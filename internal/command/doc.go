// Package command wraps an unreliable call in a circuit-breaker guarded
// command: a validated, immutable configuration plus an executor that
// enforces the deadline, classifies errors and resolves fallbacks.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(nil, resolver)
//	executor := command.NewExecutor(registry, resolver, log)
//
//	cmd, err := command.NewBuilder("fetch-user").
//	    Timeout(2 * time.Second).
//	    RequestVolumeThreshold(20).
//	    ErrorThresholdPercentage(50).
//	    Action(func(ctx context.Context, args ...any) (any, error) {
//	        return client.Fetch(ctx, args[0].(string))
//	    }).
//	    Fallback(func(ctx context.Context, cause error, args ...any) (any, error) {
//	        return cachedUser, nil
//	    }).
//	    Build()
//
//	result, err := executor.Execute(ctx, cmd, userID)
//
// Errors marked expected by an ErrorFilter bypass both breaker
// accounting and fallback and reach the caller directly. Everything
// else resolves through the fallback when one is configured; without
// one the caller receives the original (or handler-substituted) error,
// or CircuitOpenError when the gate rejected the call.
package command
