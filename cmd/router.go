package main

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
	"github.com/angeloszaimis/circuitguard/internal/handler"
	"github.com/angeloszaimis/circuitguard/internal/metrics"
)

func setupRouter(guardedHandler *handler.GuardedHandler, metricsCollector *metrics.Collector, registry *circuitbreaker.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", guardedHandler.ServeHTTP)
	mux.HandleFunc("/metrics", metricsCollector.Handler())
	mux.HandleFunc("/circuits", circuitsHandler(registry))

	return mux
}

func circuitsHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(registry.Stats()); err != nil {
			http.Error(w, "failed to encode circuit stats", http.StatusInternalServerError)
		}
	}
}
