package handler

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
	"github.com/angeloszaimis/circuitguard/internal/command"
)

type GuardedHandler struct {
	logger   *slog.Logger
	executor *command.Executor
	cmd      *command.Command
	registry *circuitbreaker.Registry
}

func (g *GuardedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	g.logger.Info("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("command_key", g.cmd.Key()))

	start := time.Now()
	result, err := g.executor.Execute(r.Context(), g.cmd, r)

	if state, ok := g.registry.StateOf(g.cmd.Key()); ok {
		w.Header().Set("X-Circuit-State", state.String())
	}

	if err != nil {
		g.logger.Warn("Command failed without fallback",
			slog.String("client", clientIP),
			slog.String("command_key", g.cmd.Key()),
			slog.Duration("duration", time.Since(start)),
			slog.Any("err", err))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	g.logger.Info("Command completed",
		slog.String("client", clientIP),
		slog.String("command_key", g.cmd.Key()),
		slog.Duration("duration", time.Since(start)))

	writeResult(w, result)
}

func statusFor(err error) int {
	switch {
	case command.IsTimeout(err):
		return http.StatusGatewayTimeout
	case command.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeResult(w http.ResponseWriter, result any) {
	switch v := result.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case []byte:
		w.Write(v)
	case string:
		fmt.Fprint(w, v)
	default:
		fmt.Fprint(w, v)
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func NewGuardedHandler(logger *slog.Logger, executor *command.Executor, cmd *command.Command, registry *circuitbreaker.Registry) *GuardedHandler {
	return &GuardedHandler{
		logger:   logger,
		executor: executor,
		cmd:      cmd,
		registry: registry,
	}
}
