// Package handler implements the HTTP handler that guards an upstream
// call behind a circuit breaker command. It maps command errors to
// gateway status codes and reports the circuit state on every response.
package handler
