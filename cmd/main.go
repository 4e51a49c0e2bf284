package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/angeloszaimis/circuitguard/config"
	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
	"github.com/angeloszaimis/circuitguard/internal/command"
	"github.com/angeloszaimis/circuitguard/internal/handler"
	"github.com/angeloszaimis/circuitguard/internal/httpserver"
	"github.com/angeloszaimis/circuitguard/internal/metrics"
	"github.com/angeloszaimis/circuitguard/internal/overrides"
	"github.com/angeloszaimis/circuitguard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	resolver := overrides.NewViperResolver(viper.GetViper())
	registry := circuitbreaker.NewRegistry(circuitbreaker.NewMemoryStore(), resolver)

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	executor := command.NewExecutor(registry, resolver, log, command.WithCollector(collector))

	upstreamCmd, err := buildUpstreamCommand(cfg)
	if err != nil {
		log.Error("Failed to build upstream command", slog.Any("err", err))
		os.Exit(1)
	}

	guardedHandler := handler.NewGuardedHandler(log, executor, upstreamCmd, registry)

	mux := setupRouter(guardedHandler, collector, registry)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Circuit guard listening",
		slog.String("address", cfg.Server.Address),
		slog.String("upstream", cfg.Upstream.URL),
		slog.String("command_key", cfg.Upstream.CommandKey))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func buildUpstreamCommand(cfg *config.Config) (*command.Command, error) {
	if cfg.Upstream.URL == "" {
		return nil, fmt.Errorf("upstream.url is required")
	}

	client := &http.Client{}

	builder := command.NewBuilder(cfg.Upstream.CommandKey).
		Timeout(cfg.Circuit.TimeoutDuration()).
		RequestVolumeThreshold(cfg.Circuit.RequestVolumeThreshold).
		ErrorThresholdPercentage(cfg.Circuit.ErrorThresholdPercentage).
		SleepWindow(cfg.Circuit.SleepWindowDuration()).
		Action(upstreamAction(client, cfg.Upstream.URL))

	if cfg.Upstream.FallbackBody != "" {
		fallbackBody := cfg.Upstream.FallbackBody
		builder = builder.Fallback(func(ctx context.Context, cause error, args ...any) (any, error) {
			return fallbackBody, nil
		})
	}

	return builder.Build()
}

func upstreamAction(client *http.Client, url string) command.Action {
	return func(ctx context.Context, args ...any) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		if len(args) > 0 {
			if inbound, ok := args[0].(*http.Request); ok {
				req.Header = inbound.Header.Clone()
			}
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("upstream returned %d after %s", resp.StatusCode, time.Since(start))
		}

		return body, nil
	}
}
