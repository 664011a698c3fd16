// Package budget implements the gateway's Budget Enforcer: per-scope cost
// ceilings with a reset period, most-specific-group-match selection, alert
// thresholds, and an auto-disable-at-limit policy.
//
// Grounded on original_source's BudgetManager (backend/core/llm_orchestration/
// budget_manager.py): can_proceed()/record_usage()/reset_budgets() map
// directly onto Admit/Record/ResetExpired below. The Azure Cost Management
// synchronization methods present there are not carried over — that is an
// external billing collaborator outside the gateway's scope.
package budget

import (
	"sort"
	"sync"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
)

// Period is a budget's reset cadence.
type Period string

const (
	Daily     Period = "daily"
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
)

func (p Period) duration() time.Duration {
	switch p {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Quarterly:
		return 90 * 24 * time.Hour
	default: // Monthly
		return 30 * 24 * time.Hour
	}
}

// Status mirrors the Budget Usage Record's status enum.
type Status string

const (
	StatusActive   Status = "active"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// Config is a Budget Configuration as defined in the data model.
type Config struct {
	BudgetID           string
	Total              float64
	Period             Period
	AlertThresholds     []float64 // fractions in [0,1]
	AutoDisableAtLimit bool
	Groups             []string // empty = global
}

// Alert is emitted to analytics when usage crosses a configured threshold.
type Alert struct {
	BudgetID  string
	Threshold float64
	Usage     float64
	Limit     float64
	At        time.Time
}

// AlertFunc receives budget threshold-crossing alerts.
type AlertFunc func(Alert)

type budgetState struct {
	cfg            Config
	mu             sync.Mutex
	currentUsage   float64
	periodStart    time.Time
	periodEnd      time.Time
	status         Status
	firedThreshold map[float64]bool
}

// Usage is a read-only snapshot of a budget's current accounting, per the
// Budget Usage Record data model.
type Usage struct {
	BudgetID     string
	Groups       []string
	CurrentUsage float64
	Limit        float64
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Status       Status
}

// Enforcer tracks and enforces every registered budget.
type Enforcer struct {
	mu      sync.RWMutex
	budgets map[string]*budgetState
	onAlert AlertFunc
}

// New creates an empty Enforcer. onAlert may be nil.
func New(onAlert AlertFunc) *Enforcer {
	if onAlert == nil {
		onAlert = func(Alert) {}
	}
	return &Enforcer{budgets: make(map[string]*budgetState), onAlert: onAlert}
}

// Register adds or replaces a budget configuration, starting a fresh period.
func (e *Enforcer) Register(cfg Config) {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.budgets[cfg.BudgetID] = &budgetState{
		cfg:            cfg,
		periodStart:    now,
		periodEnd:      now.Add(cfg.Period.duration()),
		status:         StatusActive,
		firedThreshold: make(map[float64]bool),
	}
}

// applicable returns the most-specific budget for (userID, groups) — the
// one with the smallest non-empty group list that still contains every one
// of the caller's groups — plus the always-checked global budget (empty
// Groups). Both may be nil.
func (e *Enforcer) applicable(groups []string) (specific, global *budgetState) {
	var best *budgetState
	bestSize := -1
	for _, b := range e.budgets {
		if len(b.cfg.Groups) == 0 {
			if global == nil {
				global = b
			}
			continue
		}
		if !containsAll(groups, b.cfg.Groups) {
			continue
		}
		if best == nil || len(b.cfg.Groups) < bestSize {
			best = b
			bestSize = len(b.cfg.Groups)
		}
	}
	return best, global
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}

// Admit checks whether a request estimated to cost estimatedCost may
// proceed against the most-specific budget for groups and the global
// budget. It returns a *gwerrors.Error with Kind=BudgetExceeded (with
// current_usage/limit details) on denial.
func (e *Enforcer) Admit(groups []string, estimatedCost float64) error {
	e.mu.RLock()
	specific, global := e.applicable(groups)
	e.mu.RUnlock()

	for _, b := range []*budgetState{specific, global} {
		if b == nil {
			continue
		}
		if err := b.admit(estimatedCost); err != nil {
			return err
		}
	}
	return nil
}

func (b *budgetState) admit(estimatedCost float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.AutoDisableAtLimit && b.status == StatusExceeded {
		return gwerrors.New(gwerrors.BudgetExceeded, "budget disabled for remainder of period").
			WithDetails(map[string]any{
				"budget_id":     b.cfg.BudgetID,
				"current_usage": b.currentUsage,
				"limit":         b.cfg.Total,
			})
	}
	if b.currentUsage+estimatedCost > b.cfg.Total {
		return gwerrors.New(gwerrors.BudgetExceeded, "projected cost exceeds budget").
			WithDetails(map[string]any{
				"budget_id":     b.cfg.BudgetID,
				"current_usage": b.currentUsage,
				"limit":         b.cfg.Total,
			})
	}
	return nil
}

// Record charges actualCost against the most-specific budget and the
// global budget, firing alerts on threshold crossings.
func (e *Enforcer) Record(groups []string, actualCost float64) {
	e.mu.RLock()
	specific, global := e.applicable(groups)
	e.mu.RUnlock()

	for _, b := range []*budgetState{specific, global} {
		if b != nil {
			b.record(actualCost, e.onAlert)
		}
	}
}

func (b *budgetState) record(actualCost float64, onAlert AlertFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.currentUsage += actualCost
	ratio := 0.0
	if b.cfg.Total > 0 {
		ratio = b.currentUsage / b.cfg.Total
	}

	switch {
	case ratio >= 1:
		b.status = StatusExceeded
	case len(b.cfg.AlertThresholds) > 0 && ratio >= minThreshold(b.cfg.AlertThresholds):
		b.status = StatusWarning
	default:
		b.status = StatusActive
	}

	for _, threshold := range b.cfg.AlertThresholds {
		if ratio >= threshold && !b.firedThreshold[threshold] {
			b.firedThreshold[threshold] = true
			onAlert(Alert{
				BudgetID:  b.cfg.BudgetID,
				Threshold: threshold,
				Usage:     b.currentUsage,
				Limit:     b.cfg.Total,
				At:        time.Now(),
			})
		}
	}
}

func minThreshold(thresholds []float64) float64 {
	sorted := append([]float64(nil), thresholds...)
	sort.Float64s(sorted)
	return sorted[0]
}

// ResetExpired zeroes current_usage and advances the period window for
// every budget whose period has elapsed. Intended to be called
// periodically by a background job.
func (e *Enforcer) ResetExpired(now time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, b := range e.budgets {
		b.resetIfExpired(now)
	}
}

func (b *budgetState) resetIfExpired(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.periodEnd) {
		return
	}
	b.currentUsage = 0
	b.periodStart = b.periodEnd
	b.periodEnd = b.periodStart.Add(b.cfg.Period.duration())
	b.status = StatusActive
	b.firedThreshold = make(map[float64]bool)
}

// Usage returns a snapshot of every registered budget's current accounting.
func (e *Enforcer) Usage() []Usage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Usage, 0, len(e.budgets))
	for _, b := range e.budgets {
		b.mu.Lock()
		out = append(out, Usage{
			BudgetID:     b.cfg.BudgetID,
			Groups:       b.cfg.Groups,
			CurrentUsage: b.currentUsage,
			Limit:        b.cfg.Total,
			PeriodStart:  b.periodStart,
			PeriodEnd:    b.periodEnd,
			Status:       b.status,
		})
		b.mu.Unlock()
	}
	return out
}

// GlobalStatus returns the global (no-group) budget's usage, if one is
// registered.
func (e *Enforcer) GlobalStatus() (Usage, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, b := range e.budgets {
		if len(b.cfg.Groups) == 0 {
			b.mu.Lock()
			u := Usage{
				BudgetID:     b.cfg.BudgetID,
				CurrentUsage: b.currentUsage,
				Limit:        b.cfg.Total,
				PeriodStart:  b.periodStart,
				PeriodEnd:    b.periodEnd,
				Status:       b.status,
			}
			b.mu.Unlock()
			return u, true
		}
	}
	return Usage{}, false
}
