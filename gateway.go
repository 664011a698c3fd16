// Package aigateway implements the LLM Orchestration Gateway: a unified
// entry point that accepts text-completion requests, selects a
// provider/model according to admin policy, enforces cost budgets,
// caches responses, isolates failing providers behind circuit breakers,
// and emits usage analytics.
//
// Gateway is the main entry point: create one with New, call Initialize
// before routing any request, call ProcessRequest/ProcessStream to route
// requests, and Shutdown when done.
package aigateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/adapterfactory"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/analytics"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/circuitbreaker"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/health"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/logging"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/metrics"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/ratelimit"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/responsecache"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/usagelog"
	"github.com/ferro-labs/llm-orchestration-gateway/providers"
)

// EventHookFunc is called asynchronously after a gateway event (request
// completed or failed, or a budget alert).
type EventHookFunc func(ctx context.Context, subject string, data map[string]any)

// Event subject constants used when invoking gateway hooks.
const (
	SubjectRequestCompleted = "gateway.request.completed"
	SubjectRequestFailed    = "gateway.request.failed"
	SubjectBudgetAlert      = "gateway.budget.alert"
)

// Gateway is the main entry point for routing LLM requests. It owns the
// full pipeline: Request Enricher -> Cache -> Budget Enforcer -> Rate
// Limiter -> Router -> Circuit Breaker -> Provider Adapter -> Response
// Builder -> Cache Writer/Usage Logger/Analytics -> Health Monitor.
//
// Grounded on the teacher's Gateway struct/Route pipeline shape: pipeline
// stages become sequential method calls under one sync.RWMutex-guarded
// struct, with a background health goroutine started by Initialize and
// stopped by Shutdown via a stored cancel func, mirroring the teacher's
// StartDiscovery(ctx, interval) ticker pattern.
type Gateway struct {
	mu          sync.RWMutex
	opts        GatewayOptions
	initialized bool

	configStore *configstore.Store
	secrets     *secretstore.Store
	factory     *adapterfactory.Factory

	cache    *responsecache.Cache
	budgets  *budget.Enforcer
	limiter  *ratelimit.GatewayLimiter
	routing  *router.Router
	health   *health.Monitor
	usage    *usagelog.Logger
	analytic *analytics.Analytics

	adapters map[string]providers.Provider
	breakers map[string]*circuitbreaker.CircuitBreaker
	models   map[string]configstore.ModelConfig

	hooks      []EventHookFunc
	cancelHlth context.CancelFunc

	requestSeq uint64
}

// New creates a Gateway. configStore and secrets are required;
// usageWriter may be nil (usage records are then discarded, matching the
// teacher's nil-safe optional-collaborator pattern).
func New(opts GatewayOptions, configStore *configstore.Store, secrets *secretstore.Store, usageWriter usagelog.Writer) *Gateway {
	opts = opts.withDefaults()
	logger := usagelog.New(opts.UsageFlushBatch, usageWriter)
	return &Gateway{
		opts:        opts,
		configStore: configStore,
		secrets:     secrets,
		factory:     adapterfactory.NewFactory(secrets),
		usage:       logger,
		adapters:    make(map[string]providers.Provider),
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
		models:      make(map[string]configstore.ModelConfig),
	}
}

// AddHook registers an EventHookFunc invoked asynchronously on request
// completion/failure and budget alerts.
func (g *Gateway) AddHook(fn EventHookFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// Initialize loads configuration, instantiates an adapter per active
// model (plus the always-present fallback adapter), wires circuit
// breakers, initializes collaborators, and runs one synchronous health
// probe. Must be called before any request.
func (g *Gateway) Initialize(ctx context.Context) error {
	doc := g.configStore.Document()

	adapters, err := g.factory.Build(doc.Models)
	if err != nil {
		return fmt.Errorf("aigateway: initialize: %w", err)
	}

	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(doc.Models)+1)
	breakers["fallback"] = circuitbreaker.New(1<<30, 1, time.Hour) // never opens
	modelsByID := make(map[string]configstore.ModelConfig, len(doc.Models))
	for _, m := range doc.Models {
		if !m.Active {
			continue
		}
		modelsByID[m.ModelID] = m
		breakers[m.ModelID] = circuitbreaker.New(failureThresholdOrDefault(m.FailureThreshold), 1, recoveryTimeoutOrDefault(m.RecoveryTimeoutSeconds))
	}

	mon := health.New(nil)
	for id, a := range adapters {
		if p, ok := a.(health.Prober); ok {
			mon.Register(id, p, breakers[id])
		}
	}

	g.mu.Lock()
	g.adapters = adapters
	g.breakers = breakers
	g.models = modelsByID
	g.cache = responsecache.New(g.opts.CacheCapacity, g.opts.CacheDefaultTTL, taskTTLFromConfig(doc.Caching))
	g.budgets = budget.New(g.alertFunc())
	for _, b := range doc.Budgets {
		g.budgets.Register(b)
	}
	g.limiter = ratelimit.NewGatewayLimiter(doc.RateLimit.GlobalPerMinute, doc.RateLimit.UserPerMinute, doc.RateLimit.ModelPerMinute)
	g.routing = router.New(doc.RoutingRules, doc.ABTests)
	g.health = mon
	g.analytic = analytics.New(nil) // wired to a concrete usagelog.SQLWriter by the caller if analytics is needed
	g.initialized = true
	g.mu.Unlock()

	mon.ProbeNow(ctx)

	hctx, cancel := context.WithCancel(context.Background())
	if err := mon.Start(hctx, g.opts.HealthInterval); err != nil {
		cancel()
		return fmt.Errorf("aigateway: start health monitor: %w", err)
	}
	g.mu.Lock()
	g.cancelHlth = cancel
	g.mu.Unlock()

	return nil
}

func failureThresholdOrDefault(n int) int {
	if n <= 0 {
		return 5
	}
	return n
}

func recoveryTimeoutOrDefault(seconds int) time.Duration {
	if seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func taskTTLFromConfig(c configstore.CachingConfig) map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.TaskTypeTTLSeconds))
	for k, v := range c.TaskTypeTTLSeconds {
		out[k] = time.Duration(v) * time.Second
	}
	return out
}

func (g *Gateway) alertFunc() budget.AlertFunc {
	return func(a budget.Alert) {
		if a.Limit > 0 {
			metrics.BudgetUtilization.WithLabelValues(a.BudgetID).Set(a.Usage / a.Limit)
		}
		g.publishEvent(context.Background(), SubjectBudgetAlert, map[string]any{
			"budget_id": a.BudgetID,
			"threshold": a.Threshold,
			"usage":     a.Usage,
			"limit":     a.Limit,
			"timestamp": a.At,
		})
	}
}

// budgetIDFromErr extracts the budget_id detail from a BudgetExceeded
// gwerrors.Error for labelling rejection metrics; returns "unknown" if the
// error carries no such detail.
func budgetIDFromErr(err error) string {
	var gwErr *gwerrors.Error
	if errors.As(err, &gwErr) {
		if id, ok := gwErr.Details["budget_id"].(string); ok {
			return id
		}
	}
	return "unknown"
}

func (g *Gateway) nextRequestID() string {
	g.mu.Lock()
	g.requestSeq++
	seq := g.requestSeq
	g.mu.Unlock()
	return "req_" + strconv.FormatUint(seq, 36) + "_" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// ProcessRequest runs the full pipeline for a non-streaming request.
func (g *Gateway) ProcessRequest(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	g.mu.RLock()
	initialized := g.initialized
	g.mu.RUnlock()
	if !initialized {
		return nil, gwerrors.New(gwerrors.NotInitialized, "gateway not initialized")
	}

	req, err := enrich(req, g.nextRequestID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()

	fingerprint := responsecache.Fingerprint(req.Prompt, intOrZero(req.MaxTokens), floatOrZero(req.Temperature))
	if !req.Stream {
		if entry, ok := g.cache.Get(fingerprint); ok {
			metrics.CacheHits.Inc()
			metrics.CacheSize.Set(float64(g.cache.Stats().Size))
			cached := entry.Response
			return g.buildResponse(req, &cached, time.Duration(entry.LatencyMS)*time.Millisecond, true), nil
		}
		metrics.CacheMisses.Inc()
	}

	tier := g.resolveTier(req.UserTier)
	estimatedCost := estimateCost(req.Prompt, intOrZero(req.MaxTokens))
	groups := []string{req.UserTier}
	if err := g.budgets.Admit(groups, estimatedCost); err != nil {
		metrics.BudgetRejections.WithLabelValues(budgetIDFromErr(err)).Inc()
		return nil, err
	}
	if !g.limiter.Allow(req.UserID, "", ratelimit.TierMultiplier(tier.RateLimitMultiplier)) {
		return nil, gwerrors.New(gwerrors.RateLimited, "rate limit exceeded")
	}

	modelID, adapter, cb, err := g.selectModel(req, tier)
	if err != nil {
		return nil, err
	}

	resp, provErr := g.callAdapter(ctx, adapter, cb, modelID, req)
	if provErr != nil {
		fbResp, fbErr := g.callFallback(ctx, req, provErr)
		if fbErr != nil {
			g.finishFailure(ctx, log, req, provErr, start)
			return nil, provErr
		}
		resp = fbResp
		modelID = "fallback"
	}

	g.budgets.Record(groups, estimatedCost)
	out := g.buildResponse(req, resp, time.Since(start), false)
	if !req.Stream {
		g.cache.Set(fingerprint, *resp, out.LatencyMS, req.TaskType, 0)
		metrics.CacheSize.Set(float64(g.cache.Stats().Size))
	}

	g.finishSuccess(ctx, log, req, out, resp, modelID)
	return out, nil
}

// callFallback retries once against the fallback adapter per the
// error-fallback policy: a service-unavailable preface is prepended to
// content and the original error kind is carried in metadata.error.
func (g *Gateway) callFallback(ctx context.Context, req Request, cause error) (*providers.Response, error) {
	g.mu.RLock()
	fb, ok := g.adapters["fallback"]
	g.mu.RUnlock()
	if !ok {
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "no fallback adapter registered", cause)
	}

	presp, err := fb.Complete(ctx, providers.Request{
		Model:    "fallback",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: req.Prompt}},
	})
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "fallback adapter failed", err)
	}
	if len(presp.Choices) > 0 {
		presp.Choices[0].Message.Content = "service temporarily unavailable: " + presp.Choices[0].Message.Content
	}
	return presp, nil
}

func (g *Gateway) callAdapter(ctx context.Context, adapter providers.Provider, cb *circuitbreaker.CircuitBreaker, modelID string, req Request) (*providers.Response, error) {
	if !cb.Allow() {
		metrics.CircuitBreakerState.WithLabelValues(modelID).Set(1)
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "circuit open for model "+modelID, circuitbreaker.ErrCircuitOpen)
	}

	pctx, cancel := context.WithTimeout(ctx, g.opts.ProviderTimeout)
	defer cancel()

	presp, err := adapter.Complete(pctx, providers.Request{
		Model:       modelID,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		cb.RecordFailure()
		metrics.CircuitBreakerState.WithLabelValues(modelID).Set(float64(cb.State()))
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return nil, gwerrors.Wrap(gwerrors.Timeout, "provider call timed out", err)
		}
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "provider call failed", err)
	}
	cb.RecordSuccess()
	metrics.CircuitBreakerState.WithLabelValues(modelID).Set(0)
	return presp, nil
}

// selectModel builds the candidate set (active, circuit-closed-or-half-
// open, tier-allowed) and asks the Router to pick one.
func (g *Gateway) selectModel(req Request, tier configstore.UserTier) (string, providers.Provider, *circuitbreaker.CircuitBreaker, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var candidates []router.Candidate
	for id, m := range g.models {
		cb, ok := g.breakers[id]
		if !ok {
			continue
		}
		if cb.State() == circuitbreaker.StateOpen {
			continue
		}
		candidates = append(candidates, router.Candidate{ModelID: id, Priority: m.Priority})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ModelID < candidates[j].ModelID })

	modelID := g.routing.Select(router.Request{
		UserID:   req.UserID,
		TaskType: req.TaskType,
		Context:  map[string]string{"task_type": req.TaskType},
		Tier:     router.Tier{AllowedModels: tier.AllowedModels, PriorityBoost: tier.PriorityBoost},
	}, candidates, time.Now())

	if modelID == "" {
		modelID = "fallback"
	}

	adapter, ok := g.adapters[modelID]
	if !ok {
		return "", nil, nil, gwerrors.New(gwerrors.NoHealthyModel, "no available model or fallback adapter")
	}
	cb, ok := g.breakers[modelID]
	if !ok {
		cb = circuitbreaker.New(5, 1, 30*time.Second)
	}
	return modelID, adapter, cb, nil
}

func (g *Gateway) resolveTier(tierID string) configstore.UserTier {
	if tierID == "" {
		return configstore.UserTier{RateLimitMultiplier: 1}
	}
	for _, t := range g.configStore.Document().UserTiers {
		if t.TierID == tierID {
			return t
		}
	}
	return configstore.UserTier{RateLimitMultiplier: 1}
}

func (g *Gateway) buildResponse(req Request, presp *providers.Response, latency time.Duration, cached bool) *Response {
	tokens := presp.Usage.TotalTokens
	if tokens == 0 && len(presp.Choices) > 0 {
		tokens = estimateTokens(presp.Choices[0].Message.Content)
	}
	content := ""
	if len(presp.Choices) > 0 {
		content = presp.Choices[0].Message.Content
	}

	g.mu.RLock()
	cfg, hasCfg := g.models[presp.Model]
	g.mu.RUnlock()

	cost := estimateCost(req.Prompt, tokens)
	if hasCfg && (cfg.CostPerInputToken > 0 || cfg.CostPerOutputToken > 0) {
		promptTokens := presp.Usage.PromptTokens
		completionTokens := presp.Usage.CompletionTokens
		if promptTokens == 0 && completionTokens == 0 {
			promptTokens = estimateTokens(req.Prompt)
			completionTokens = tokens
		}
		cost = modelCost(cfg, promptTokens, completionTokens)
	}

	return &Response{
		Content:      content,
		ModelUsed:    presp.Model,
		Provider:     presp.Provider,
		RequestID:    req.RequestID,
		TokensUsed:   tokens,
		CostEstimate: cost,
		LatencyMS:    latency.Milliseconds(),
		Cached:       cached,
		UserID:       req.UserID,
		SessionID:    req.SessionID,
		Metadata:     map[string]any{},
	}
}

func (g *Gateway) finishSuccess(ctx context.Context, log *slog.Logger, req Request, out *Response, presp *providers.Response, modelID string) {
	_ = g.usage.Record(ctx, usagelog.Record{
		Timestamp: req.Timestamp,
		UserID:    req.UserID,
		ModelUsed: modelID,
		Provider:  out.Provider,
		LatencyMS: out.LatencyMS,
		Tokens:    out.TokensUsed,
		Cost:      out.CostEstimate,
		Success:   true,
		Cached:    out.Cached,
		TaskType:  req.TaskType,
		RequestID: req.RequestID,
	})

	metrics.RequestsTotal.WithLabelValues(out.Provider, modelID, "success").Inc()
	metrics.RequestDuration.WithLabelValues(out.Provider, modelID).Observe(float64(out.LatencyMS) / 1000)
	metrics.TokensOutput.WithLabelValues(out.Provider, modelID).Add(float64(out.TokensUsed))
	if out.CostEstimate > 0 {
		metrics.RequestCostUSD.WithLabelValues(out.Provider, modelID).Add(out.CostEstimate)
	}

	log.Info("request completed",
		"model", modelID,
		"provider", out.Provider,
		"latency_ms", out.LatencyMS,
		"tokens", out.TokensUsed,
		"cost_usd", out.CostEstimate,
		"cached", out.Cached,
	)

	g.publishEvent(ctx, SubjectRequestCompleted, map[string]any{
		"request_id": req.RequestID,
		"model":      modelID,
		"latency_ms": out.LatencyMS,
		"cost":       out.CostEstimate,
		"cached":     out.Cached,
	})
}

func (g *Gateway) finishFailure(ctx context.Context, log *slog.Logger, req Request, err error, start time.Time) {
	_ = g.usage.Record(ctx, usagelog.Record{
		Timestamp: req.Timestamp,
		UserID:    req.UserID,
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   false,
		TaskType:  req.TaskType,
		RequestID: req.RequestID,
	})
	metrics.RequestsTotal.WithLabelValues("", "", "error").Inc()
	metrics.ProviderErrors.WithLabelValues("", string(gwerrors.KindOf(err))).Inc()

	log.Error("request failed",
		"request_id", req.RequestID,
		"latency_ms", time.Since(start).Milliseconds(),
		"error", err.Error(),
	)

	g.publishEvent(ctx, SubjectRequestFailed, map[string]any{
		"request_id": req.RequestID,
		"error":      err.Error(),
	})
}

// publishEvent calls all registered hooks asynchronously.
func (g *Gateway) publishEvent(ctx context.Context, subject string, data map[string]any) {
	g.mu.RLock()
	hooks := make([]EventHookFunc, len(g.hooks))
	copy(hooks, g.hooks)
	g.mu.RUnlock()
	for _, h := range hooks {
		fn := h
		go fn(ctx, subject, data)
	}
}

// ProcessStream runs the pipeline up to the adapter call, then streams
// the adapter's chunks to the caller. Usage is logged after the stream
// completes or errors mid-stream (partial tokens counted as emitted).
func (g *Gateway) ProcessStream(ctx context.Context, req Request) (<-chan providers.StreamChunk, error) {
	g.mu.RLock()
	initialized := g.initialized
	g.mu.RUnlock()
	if !initialized {
		return nil, gwerrors.New(gwerrors.NotInitialized, "gateway not initialized")
	}

	req, err := enrich(req, g.nextRequestID)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	tier := g.resolveTier(req.UserTier)
	modelID, adapter, cb, err := g.selectModel(req, tier)
	if err != nil {
		return nil, err
	}
	sp, ok := adapter.(providers.StreamProvider)
	if !ok {
		return nil, gwerrors.New(gwerrors.ProviderError, "model "+modelID+" does not support streaming")
	}
	if !cb.Allow() {
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "circuit open for model "+modelID, circuitbreaker.ErrCircuitOpen)
	}

	upstream, err := sp.CompleteStream(ctx, providers.Request{
		Model:       modelID,
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		cb.RecordFailure()
		return nil, gwerrors.Wrap(gwerrors.ProviderError, "stream start failed", err)
	}

	out := make(chan providers.StreamChunk)
	start := time.Now()
	go func() {
		defer close(out)
		tokens := 0
		success := true
		for chunk := range upstream {
			if chunk.Error != nil {
				success = false
			}
			for _, c := range chunk.Choices {
				tokens += estimateTokens(c.Delta.Content)
			}
			out <- chunk
		}
		if success {
			cb.RecordSuccess()
		} else {
			cb.RecordFailure()
		}
		_ = g.usage.Record(ctx, usagelog.Record{
			Timestamp: req.Timestamp,
			UserID:    req.UserID,
			ModelUsed: modelID,
			LatencyMS: time.Since(start).Milliseconds(),
			Tokens:    tokens,
			Cost:      estimateCost(req.Prompt, tokens),
			Success:   success,
			TaskType:  req.TaskType,
			RequestID: req.RequestID,
		})
	}()
	return out, nil
}

// ProviderStatus is one model's entry in GetProviderStatus's snapshot.
type ProviderStatus struct {
	ModelID string
	Healthy bool
	Circuit circuitbreaker.Snapshot
}

// StatusSnapshot is GetProviderStatus's return value.
type StatusSnapshot struct {
	Providers    []ProviderStatus
	CacheStats   responsecache.Stats
	GlobalBudget budget.Usage
	HasBudget    bool
	ActiveModels int
	TotalModels  int
}

// GetProviderStatus returns per-model health, circuit states, cache
// stats, global budget status, and active/total model counts. Triggers a
// health probe if now - last_probe > health_interval (default 60s).
func (g *Gateway) GetProviderStatus(ctx context.Context) StatusSnapshot {
	g.mu.RLock()
	mon := g.health
	cache := g.cache
	budgets := g.budgets
	totalModels := len(g.configStore.Document().Models)
	activeModels := len(g.models)
	g.mu.RUnlock()

	if mon != nil && mon.ShouldProbe(time.Now(), g.opts.HealthInterval) {
		mon.ProbeNow(ctx)
	}

	var statuses []ProviderStatus
	if mon != nil {
		for id, s := range mon.Statuses() {
			statuses = append(statuses, ProviderStatus{ModelID: id, Healthy: s.Healthy, Circuit: s.Circuit})
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].ModelID < statuses[j].ModelID })
	}

	global, hasBudget := budget.Usage{}, false
	if budgets != nil {
		global, hasBudget = budgets.GlobalStatus()
	}

	var cacheStats responsecache.Stats
	if cache != nil {
		cacheStats = cache.Stats()
	}

	return StatusSnapshot{
		Providers:    statuses,
		CacheStats:   cacheStats,
		GlobalBudget: global,
		HasBudget:    hasBudget,
		ActiveModels: activeModels,
		TotalModels:  totalModels,
	}
}

// AdminAddModel adds or replaces a Model Configuration and rebuilds its
// adapter/circuit-breaker atomically. Takes effect no later than the next
// request that begins after this call returns.
func (g *Gateway) AdminAddModel(cfg configstore.ModelConfig) error {
	g.configStore.AddModel(cfg)
	return g.rebuildModel(cfg)
}

// AdminToggleModel flips a model's active flag and adds/removes its
// circuit-breaker tracking accordingly.
func (g *Gateway) AdminToggleModel(modelID string, active bool) error {
	if err := g.configStore.ToggleModel(modelID, active); err != nil {
		return err
	}
	for _, m := range g.configStore.Document().Models {
		if m.ModelID == modelID {
			return g.rebuildModel(m)
		}
	}
	return nil
}

func (g *Gateway) rebuildModel(cfg configstore.ModelConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !cfg.Active {
		delete(g.adapters, cfg.ModelID)
		delete(g.breakers, cfg.ModelID)
		delete(g.models, cfg.ModelID)
		g.health.Unregister(cfg.ModelID)
		return nil
	}

	adapter, err := adapterfactory.New(cfg, g.secrets)
	if err != nil {
		return fmt.Errorf("aigateway: rebuild model %q: %w", cfg.ModelID, err)
	}
	cb := circuitbreaker.New(failureThresholdOrDefault(cfg.FailureThreshold), 1, recoveryTimeoutOrDefault(cfg.RecoveryTimeoutSeconds))
	g.adapters[cfg.ModelID] = adapter
	g.breakers[cfg.ModelID] = cb
	g.models[cfg.ModelID] = cfg
	g.health.Register(cfg.ModelID, adapter, cb)
	return nil
}

// AdminListModels returns every configured model, active or not.
func (g *Gateway) AdminListModels() []configstore.ModelConfig {
	return g.configStore.ListModels()
}

// AdminAddRoutingRule adds a routing rule and rebuilds the router.
func (g *Gateway) AdminAddRoutingRule(rule router.RoutingRule) {
	g.configStore.AddRoutingRule(rule)
	g.rebuildRouter()
}

// AdminCreateABTest adds an A/B test and rebuilds the router.
func (g *Gateway) AdminCreateABTest(test router.ABTest) {
	g.configStore.CreateABTest(test)
	g.rebuildRouter()
}

func (g *Gateway) rebuildRouter() {
	doc := g.configStore.Document()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routing = router.New(doc.RoutingRules, doc.ABTests)
}

// AdminCreateBudget adds a budget configuration and registers it with the
// live Budget Enforcer.
func (g *Gateway) AdminCreateBudget(cfg budget.Config) {
	g.configStore.CreateBudget(cfg)
	g.mu.RLock()
	budgets := g.budgets
	g.mu.RUnlock()
	if budgets != nil {
		budgets.Register(cfg)
	}
}

// ExportConfig returns the authoritative JSON wire document for the
// current configuration (models, routing_rules, ab_tests, budgets,
// user_tiers, caching_config, rate_limit_config).
func (g *Gateway) ExportConfig() ([]byte, error) {
	return g.configStore.Export()
}

// GetUsageReport returns a usage summary for the given window, optionally
// filtered by user.
func (g *Gateway) GetUsageReport(ctx context.Context, win analytics.Window, userID string, topN int) (analytics.Report, error) {
	g.mu.RLock()
	a := g.analytic
	g.mu.RUnlock()
	if a == nil {
		return analytics.Report{}, gwerrors.New(gwerrors.NotInitialized, "analytics not initialized")
	}
	return a.GetUsageReport(ctx, win, userID, topN)
}

// SetAnalyticsSource rewires the Analytics component onto a concrete
// usagelog-backed source (e.g. a *usagelog.SQLWriter), once one has been
// constructed by the caller. Safe to call after Initialize.
func (g *Gateway) SetAnalyticsSource(source analytics.Source) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.analytic = analytics.New(source)
}

// Shutdown flushes the usage logger, clears adapters, and marks the
// gateway uninitialized.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	cancel := g.cancelHlth
	g.initialized = false
	g.adapters = make(map[string]providers.Provider)
	g.breakers = make(map[string]*circuitbreaker.CircuitBreaker)
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return g.usage.Close(ctx)
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// estimateTokens approximates token count as ceil(word_count * 1.3), per
// the Provider Adapter component's fallback-estimation rule.
func estimateTokens(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return int((float64(words)*1.3)+0.999999) // ceil
}

// estimateCost is a placeholder cost estimator in the absence of a
// per-model cost table lookup at the call site (the real per-token cost
// table lives on configstore.ModelConfig and is applied by
// finishSuccess's caller once the chosen model is known).
func estimateCost(prompt string, maxTokens int) float64 {
	inputTokens := estimateTokens(prompt)
	return float64(inputTokens+maxTokens) * 0.000002
}

// modelCost computes the actual per-request cost once the serving model
// is known, from its Model Configuration's flat per-token rates. Adapted
// from models/calculator.go's chat-mode input/output formula, with the
// per-million-token catalog lookup replaced by the two admin-settable
// rates the Configuration Store carries directly on ModelConfig.
func modelCost(cfg configstore.ModelConfig, promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*cfg.CostPerInputToken + float64(completionTokens)*cfg.CostPerOutputToken
}
