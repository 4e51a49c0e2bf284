package command

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ConfigurationError reports an invalid command configuration. It is
// raised at build time and never reaches execution.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid command configuration: %s", e.Reason)
}

// TimeoutError reports that the action's deadline fired before it
// settled. It replaces the action's eventual outcome, which is
// discarded. The error is gateway-timeout flavored so HTTP surfaces can
// map it directly.
type TimeoutError struct {
	Key     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s (gateway timeout)", e.Key, e.Timeout)
}

func (e *TimeoutError) StatusCode() int {
	return http.StatusGatewayTimeout
}

// CircuitOpenError reports that the breaker rejected a call at the gate
// and no fallback was configured.
type CircuitOpenError struct {
	Key string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for command %q", e.Key)
}

func (e *CircuitOpenError) StatusCode() int {
	return http.StatusServiceUnavailable
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// IsCircuitOpen reports whether err is (or wraps) a CircuitOpenError.
func IsCircuitOpen(err error) bool {
	var openErr *CircuitOpenError
	return errors.As(err, &openErr)
}
