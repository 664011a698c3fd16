package aigateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/analytics"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/circuitbreaker"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/health"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/ratelimit"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/responsecache"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/usagelog"
	"github.com/ferro-labs/llm-orchestration-gateway/providers"
)

// mockProvider is a test double for providers.Provider, same shape as the
// teacher's gateway_test.go mock.
type mockProvider struct {
	name  string
	resp  *providers.Response
	err   error
	calls int
}

func (m *mockProvider) Name() string                    { return m.name }
func (m *mockProvider) SupportedModels() []string       { return []string{m.name} }
func (m *mockProvider) Models() []providers.ModelInfo   { return nil }
func (m *mockProvider) SupportsModel(model string) bool { return model == m.name }
func (m *mockProvider) Complete(_ context.Context, _ providers.Request) (*providers.Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// newTestGateway builds an initialized Gateway with injected mock adapters,
// bypassing Initialize's adapterfactory-based construction (which always
// builds real providers.Provider instances from a Model Configuration) so
// pipeline behavior can be exercised against deterministic mock providers —
// white-box field construction, the same approach the teacher reaches for
// when a collaborator has no public injection seam.
func newTestGateway(t *testing.T, adapters map[string]providers.Provider) *Gateway {
	t.Helper()

	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(adapters))
	models := make(map[string]configstore.ModelConfig, len(adapters))
	for id := range adapters {
		breakers[id] = circuitbreaker.New(5, 1, 30*time.Second)
		models[id] = configstore.ModelConfig{ModelID: id, Active: true, Priority: 1}
	}
	if _, ok := adapters["fallback"]; !ok {
		adapters["fallback"] = providers.NewFallback()
		breakers["fallback"] = circuitbreaker.New(1<<30, 1, time.Hour)
	}

	configStore, err := configstore.New(nil)
	if err != nil {
		t.Fatalf("configstore.New: %v", err)
	}

	return &Gateway{
		opts:        DefaultOptions(),
		initialized: true,
		configStore: configStore,
		secrets:     secretstore.New(time.Hour),
		cache:       responsecache.New(10, time.Hour, nil),
		budgets:     budget.New(nil),
		limiter:     ratelimit.NewGatewayLimiter(1e9, 1e9, 1e9),
		routing:     router.New(nil, nil),
		health:      health.New(nil),
		adapters:    adapters,
		breakers:    breakers,
		models:      models,
		usage:       usagelog.New(100, usagelog.NoopWriter{}),
	}
}

func textResponse(id, model, content string) *providers.Response {
	return &providers.Response{
		ID:    id,
		Model: model,
		Choices: []providers.Choice{
			{Message: providers.Message{Role: providers.RoleAssistant, Content: content}},
		},
		Usage: providers.Usage{TotalTokens: 10},
	}
}

func TestGateway_ProcessRequest_Success(t *testing.T) {
	mock := &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "hello there")}
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": mock})

	resp, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("got content %q, want %q", resp.Content, "hello there")
	}
	if resp.Cached {
		t.Error("expected first request not to be served from cache")
	}
	if mock.calls != 1 {
		t.Errorf("expected adapter to be called once, got %d", mock.calls)
	}
}

func TestGateway_ProcessRequest_CacheHitSkipsAdapter(t *testing.T) {
	mock := &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "cached reply")}
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": mock})

	req := Request{Prompt: "repeat me", UserID: "u1"}
	first, err := gw.ProcessRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp, err := gw.ProcessRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if !resp.Cached {
		t.Error("expected second identical request to be served from cache")
	}
	if mock.calls != 1 {
		t.Errorf("expected adapter called once across both requests, got %d", mock.calls)
	}
	if resp.LatencyMS != first.LatencyMS {
		t.Errorf("expected cache hit to preserve original latency_ms %d, got %d", first.LatencyMS, resp.LatencyMS)
	}
}

func TestGateway_ProcessRequest_ProviderErrorFallsBackToFallback(t *testing.T) {
	mock := &mockProvider{name: "gpt-4", err: errors.New("upstream down")}
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": mock})

	resp, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("expected fallback to absorb the provider error, got %v", err)
	}
	want := "service temporarily unavailable: "
	if len(resp.Content) < len(want) || resp.Content[:len(want)] != want {
		t.Errorf("expected fallback content prefixed with %q, got %q", want, resp.Content)
	}
}

func TestGateway_ProcessRequest_FallbackAlsoFailsSurfacesOriginalError(t *testing.T) {
	mock := &mockProvider{name: "gpt-4", err: errors.New("upstream down")}
	brokenFallback := &mockProvider{name: "fallback", err: errors.New("fallback also down")}
	gw := newTestGateway(t, map[string]providers.Provider{
		"gpt-4":    mock,
		"fallback": brokenFallback,
	})

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if err == nil {
		t.Fatal("expected an error when both the adapter and the fallback fail")
	}
	if gwerrors.KindOf(err) != gwerrors.ProviderError {
		t.Errorf("expected the original ProviderError kind to surface, got %v", gwerrors.KindOf(err))
	}
}

func TestGateway_ProcessRequest_NotInitializedFails(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4"}})
	gw.initialized = false

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi"})
	if gwerrors.KindOf(err) != gwerrors.NotInitialized {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
}

func TestGateway_ProcessRequest_InvalidRequestRejectsEmptyPrompt(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4"}})

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "   "})
	if gwerrors.KindOf(err) != gwerrors.InvalidRequest {
		t.Fatalf("expected InvalidRequest for a blank prompt, got %v", err)
	}
}

func TestGateway_ProcessRequest_BudgetExceededDenies(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "x")}})
	gw.budgets.Register(budget.Config{BudgetID: "global", Total: 0, Period: budget.Monthly})

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if gwerrors.KindOf(err) != gwerrors.BudgetExceeded {
		t.Fatalf("expected BudgetExceeded, got %v", err)
	}
}

func TestGateway_ProcessRequest_RateLimitedDenies(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "x")}})
	gw.limiter = ratelimit.NewGatewayLimiter(0, 0, 0)

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if gwerrors.KindOf(err) != gwerrors.RateLimited {
		t.Fatalf("expected RateLimited, got %v", err)
	}
}

func TestGateway_ProcessRequest_SkipsCircuitOpenModel(t *testing.T) {
	good := &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "ok")}
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": good})
	gw.breakers["gpt-4"] = circuitbreaker.New(1, 1, time.Hour)
	gw.breakers["gpt-4"].RecordFailure() // trips it open

	_, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("expected routing to fall through to the fallback adapter, got %v", err)
	}
	if good.calls != 0 {
		t.Error("expected the circuit-open model to never be called")
	}
}

func TestGateway_Shutdown_MarksUninitialized(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4"}})

	if err := gw.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi"}); gwerrors.KindOf(err) != gwerrors.NotInitialized {
		t.Fatalf("expected requests to be rejected after Shutdown, got %v", err)
	}
}

func TestGateway_AdminToggleModel_RemovesAdapterFromSelection(t *testing.T) {
	good := &mockProvider{name: "gpt-4", resp: textResponse("r1", "gpt-4", "ok")}
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": good})
	gw.configStore.AddModel(configstore.ModelConfig{ModelID: "gpt-4", Active: true, Priority: 1})

	if err := gw.AdminToggleModel("gpt-4", false); err != nil {
		t.Fatalf("AdminToggleModel: %v", err)
	}
	if _, ok := gw.adapters["gpt-4"]; ok {
		t.Error("expected the deactivated model's adapter to be removed")
	}

	resp, err := gw.ProcessRequest(context.Background(), Request{Prompt: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("expected routing to fall through to fallback once gpt-4 is deactivated, got %v", err)
	}
	if good.calls != 0 {
		t.Error("expected the deactivated model to never be called")
	}
	_ = resp
}

func TestGateway_GetUsageReport_WithoutAnalyticsSourceErrors(t *testing.T) {
	gw := newTestGateway(t, map[string]providers.Provider{"gpt-4": &mockProvider{name: "gpt-4"}})

	_, err := gw.GetUsageReport(context.Background(), analytics.Window{}, "", 5)
	if gwerrors.KindOf(err) != gwerrors.NotInitialized {
		t.Fatalf("expected NotInitialized before SetAnalyticsSource is called, got %v", err)
	}
}
