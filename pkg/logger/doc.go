// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: text output during development,
// JSON in production, plus a no-op logger for tests.
package logger
