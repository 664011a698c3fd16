// Command gatewayd is the gateway's HTTP front door: a thin chi router
// exposing ProcessRequest/ProcessStream over JSON POST and SSE, plus a
// Prometheus /metrics endpoint — grounded on cmd/ferrogw/main.go's own
// router and graceful-shutdown wiring, replacing its OpenAI-proxy surface
// with the gateway's own request/response contract.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	aigateway "github.com/ferro-labs/llm-orchestration-gateway"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
	_ "github.com/ferro-labs/llm-orchestration-gateway/internal/metrics"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/version"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/wiring"
	"github.com/ferro-labs/llm-orchestration-gateway/providers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	built, err := wiring.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build gateway: %v", err)
	}
	defer func() {
		if err := built.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	r := newRouter(built.Gateway)

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := built.Gateway.Shutdown(shutdownCtx); err != nil {
			log.Printf("Gateway shutdown error: %v", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("gatewayd %s listening on %s", version.Short(), addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	log.Println("Server stopped.")
}

func newRouter(gw *aigateway.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		status := gw.GetProviderStatus(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})

	r.Post("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req aigateway.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, gwerrors.New(gwerrors.InvalidRequest, err.Error()))
			return
		}

		if req.Stream {
			ch, err := gw.ProcessStream(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(gwerrors.KindOf(err)), err)
				return
			}
			writeSSE(w, ch)
			return
		}

		resp, err := gw.ProcessRequest(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(gwerrors.KindOf(err)), err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return r
}

// statusFor maps a gwerrors.Kind to the HTTP status an external caller
// should see.
func statusFor(kind gwerrors.Kind) int {
	switch kind {
	case gwerrors.InvalidRequest:
		return http.StatusBadRequest
	case gwerrors.RateLimited:
		return http.StatusTooManyRequests
	case gwerrors.BudgetExceeded:
		return http.StatusPaymentRequired
	case gwerrors.NoHealthyModel:
		return http.StatusServiceUnavailable
	case gwerrors.Timeout:
		return http.StatusGatewayTimeout
	case gwerrors.NotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"kind":    gwerrors.KindOf(err),
		},
	})
}

func writeSSE(w http.ResponseWriter, ch <-chan providers.StreamChunk) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)
	for chunk := range ch {
		data, _ := json.Marshal(chunk)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
