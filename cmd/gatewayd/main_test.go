package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	aigateway "github.com/ferro-labs/llm-orchestration-gateway"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/usagelog"
)

// newTestGateway builds a real, Initialize()'d Gateway with zero
// configured models. ProcessRequest on such a Gateway always falls
// through to the always-healthy fallback adapter, which is enough to
// exercise the router without needing a mock provider seam.
func newTestGateway(t *testing.T) *aigateway.Gateway {
	t.Helper()
	configStore, err := configstore.New(nil)
	if err != nil {
		t.Fatalf("configstore.New: %v", err)
	}
	gw := aigateway.New(aigateway.DefaultOptions(), configStore, secretstore.New(time.Hour), usagelog.NoopWriter{})
	if err := gw.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return gw
}

func TestHealth(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStatus(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	req := httptest.NewRequest("GET", "/v1/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
}

func TestCompletions_FallsBackWhenNoModelsConfigured(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	payload := `{"Prompt":"hello there","UserID":"u1"}`
	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestCompletions_InvalidJSONRejected(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCompletions_EmptyPromptRejected(t *testing.T) {
	gw := newTestGateway(t)
	r := newRouter(gw)

	req := httptest.NewRequest("POST", "/v1/completions", strings.NewReader(`{"Prompt":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[gwerrors.Kind]int{
		gwerrors.RateLimited:    http.StatusTooManyRequests,
		gwerrors.BudgetExceeded: http.StatusPaymentRequired,
		gwerrors.Timeout:        http.StatusGatewayTimeout,
		gwerrors.InvalidRequest: http.StatusBadRequest,
		gwerrors.Internal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}
