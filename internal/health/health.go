// Package health implements the gateway's background model health probing:
// a periodic ticker that calls each active model's adapter, recording
// success/failure against its circuit breaker and keeping a status
// snapshot for GetProviderStatus. Grounded on gateway.go's StartDiscovery/
// runDiscovery ticker pair (teacher, kept as-is for provider-model
// discovery; this package is the analogous loop for liveness instead of
// model-list refresh).
package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/circuitbreaker"
)

var errInvalidInterval = errors.New("health: interval must be greater than zero")

// Prober is implemented by anything the monitor can health-check: in
// practice, the provider adapter factory's per-model wrapper.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Status is a single model's latest probe result.
type Status struct {
	ModelID   string
	Healthy   bool
	LastError string
	CheckedAt time.Time
	Circuit   circuitbreaker.Snapshot
}

// Monitor runs periodic health probes against every registered model and
// records the outcome against that model's circuit breaker.
type Monitor struct {
	mu       sync.RWMutex
	probers  map[string]Prober
	breakers map[string]*circuitbreaker.CircuitBreaker
	statuses map[string]Status
	lastRun  time.Time
	logger   *slog.Logger
}

// New creates an empty Monitor. logger may be nil (defaults to slog.Default()).
func New(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probers:  make(map[string]Prober),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		statuses: make(map[string]Status),
		logger:   logger,
	}
}

// Register wires a model's prober and circuit breaker into the monitor.
// Calling Register again for the same modelID replaces both.
func (m *Monitor) Register(modelID string, p Prober, cb *circuitbreaker.CircuitBreaker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probers[modelID] = p
	m.breakers[modelID] = cb
}

// Unregister removes a model from monitoring, e.g. on AdminToggleModel(false).
func (m *Monitor) Unregister(modelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.probers, modelID)
	delete(m.breakers, modelID)
	delete(m.statuses, modelID)
}

// ProbeNow runs one synchronous probe pass over every registered model.
func (m *Monitor) ProbeNow(ctx context.Context) {
	m.mu.RLock()
	probers := make(map[string]Prober, len(m.probers))
	for k, v := range m.probers {
		probers[k] = v
	}
	m.mu.RUnlock()

	for modelID, p := range probers {
		err := p.HealthCheck(ctx)

		m.mu.Lock()
		cb := m.breakers[modelID]
		m.mu.Unlock()

		status := Status{ModelID: modelID, CheckedAt: time.Now(), Healthy: err == nil}
		if err != nil {
			status.LastError = err.Error()
			if cb != nil {
				cb.RecordFailure()
			}
			m.logger.Error("model health probe failed", "model", modelID, "error", err.Error())
		} else if cb != nil {
			cb.RecordSuccess()
		}
		if cb != nil {
			status.Circuit = cb.Snapshot()
		}

		m.mu.Lock()
		m.statuses[modelID] = status
		m.lastRun = status.CheckedAt
		m.mu.Unlock()
	}
}

// Statuses returns a snapshot of every model's last probe result.
func (m *Monitor) Statuses() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.statuses))
	for k, v := range m.statuses {
		out[k] = v
	}
	return out
}

// LastRun reports when the most recent probe pass completed.
func (m *Monitor) LastRun() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}

// ShouldProbe reports whether it has been at least interval since the last
// probe pass, per GetProviderStatus's "trigger a probe if now - last_probe
// > health_interval" rule.
func (m *Monitor) ShouldProbe(now time.Time, interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun.IsZero() || now.Sub(m.lastRun) > interval
}

// Start runs ProbeNow immediately, then again every interval, until ctx is
// cancelled. interval must be greater than zero.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errInvalidInterval
	}
	go func() {
		m.ProbeNow(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ProbeNow(ctx)
			}
		}
	}()
	return nil
}
