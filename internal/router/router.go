// Package router implements the gateway's model-selection cascade: A/B
// assignment, routing rules, task-type preference, then priority+tier
// fallback, per the Router component. Grounded on original_source's
// RoutingStrategyEngine and ContextAwareRouter
// (backend/core/llm_orchestration/routing.py).
package router

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"
)

// RoutingRule is an admin-defined conditional model preference.
type RoutingRule struct {
	RuleID       string
	Conditions   map[string]string
	TargetModels []string
	Weight       int
	Active       bool
}

func (r RoutingRule) matches(ctx map[string]string) bool {
	for k, v := range r.Conditions {
		if ctx[k] != v {
			return false
		}
	}
	return true
}

// ABTest is an active experiment assigning users to model variants.
type ABTest struct {
	TestID       string
	Start        time.Time
	End          time.Time
	TrafficSplit map[string]float64 // variant -> cumulative fraction owner decides order
	Variants     map[string][]string
}

func (t ABTest) activeAt(now time.Time) bool {
	return !now.Before(t.Start) && !now.After(t.End)
}

// Candidate is a model available for selection: active, tier-allowed, and
// not circuit-open.
type Candidate struct {
	ModelID  string
	Priority int // 1=highest ... 5=lowest
}

// Tier carries the user-tier modifiers relevant to routing.
type Tier struct {
	AllowedModels []string // nil/empty = all models allowed
	PriorityBoost int
}

func (t Tier) allows(modelID string) bool {
	if len(t.AllowedModels) == 0 {
		return true
	}
	for _, m := range t.AllowedModels {
		if m == modelID {
			return true
		}
	}
	return false
}

// Request carries the routing-relevant fields of an enriched gateway request.
type Request struct {
	UserID   string
	TaskType string
	Context  map[string]string // arbitrary condition keys evaluated by routing rules
	Tier     Tier
}

// taskTypePreferences mirrors ContextAwareRouter.route_by_task_type's
// static preference table, ported from original_source as an additive
// hint within the priority+tier step of the cascade.
var taskTypePreferences = map[string][]string{
	"coding":   {"gpt-4", "claude-3-sonnet", "gemini-pro"},
	"chat":     {"gpt-3.5-turbo", "gemini-pro", "perplexity"},
	"analysis": {"gpt-4", "claude-3-opus", "gemini-pro"},
	"creative": {"gpt-4", "claude-3-sonnet", "gemini-pro"},
	"factual":  {"perplexity", "gemini-pro", "gpt-4"},
}

// Router selects a model id from the available set for a request.
type Router struct {
	rules []RoutingRule
	tests []ABTest
}

// New creates a Router with the given routing rules and A/B tests.
func New(rules []RoutingRule, tests []ABTest) *Router {
	return &Router{rules: rules, tests: tests}
}

// Select implements the four-step cascade: A/B assignment, routing rules,
// priority+tier (with a task-type preference hint), fallback to the first
// available model. available is filtered down to tier-allowed candidates
// before any cascade step runs, so no step — including A/B assignment and
// routing rules — can ever hand back a model outside the caller's tier.
// Returns "" if no tier-allowed candidate remains (caller falls back to the
// synthetic fallback adapter).
func (r *Router) Select(req Request, available []Candidate, now time.Time) string {
	accessible := make([]Candidate, 0, len(available))
	for _, c := range available {
		if req.Tier.allows(c.ModelID) {
			accessible = append(accessible, c)
		}
	}
	available = accessible

	availableSet := make(map[string]Candidate, len(available))
	for _, c := range available {
		availableSet[c.ModelID] = c
	}

	if model := r.selectABTest(req, availableSet, now); model != "" {
		return model
	}
	if model := r.selectRoutingRule(req, availableSet); model != "" {
		return model
	}
	if model := r.selectPriorityTier(req, available, availableSet); model != "" {
		return model
	}
	if len(available) > 0 {
		return firstStable(available)
	}
	return ""
}

func (r *Router) selectABTest(req Request, availableSet map[string]Candidate, now time.Time) string {
	for _, test := range r.tests {
		if !test.activeAt(now) {
			continue
		}
		anyAvailable := false
		for _, models := range test.Variants {
			for _, m := range models {
				if _, ok := availableSet[m]; ok {
					anyAvailable = true
				}
			}
		}
		if !anyAvailable {
			continue
		}

		variant := AssignVariant(req.UserID, test.TestID, test.TrafficSplit)
		if variant == "" {
			continue
		}
		for _, m := range test.Variants[variant] {
			if _, ok := availableSet[m]; ok {
				return m
			}
		}
	}
	return ""
}

func (r *Router) selectRoutingRule(req Request, availableSet map[string]Candidate) string {
	sorted := append([]RoutingRule(nil), r.rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	for _, rule := range sorted {
		if !rule.Active || !rule.matches(req.Context) {
			continue
		}
		for _, m := range rule.TargetModels {
			if _, ok := availableSet[m]; ok {
				return m
			}
		}
	}
	return ""
}

// selectPriorityTier assumes available/availableSet are already
// tier-filtered by Select.
func (r *Router) selectPriorityTier(req Request, available []Candidate, availableSet map[string]Candidate) string {
	if len(available) == 0 {
		return ""
	}

	if req.TaskType != "" {
		for _, m := range taskTypePreferences[req.TaskType] {
			if _, ok := availableSet[m]; ok {
				return m
			}
		}
	}

	type scored struct {
		modelID  string
		priority int
	}
	scoredList := make([]scored, 0, len(available))
	for _, c := range available {
		scoredList = append(scoredList, scored{modelID: c.ModelID, priority: c.Priority - req.Tier.PriorityBoost})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].priority != scoredList[j].priority {
			return scoredList[i].priority < scoredList[j].priority
		}
		return scoredList[i].modelID < scoredList[j].modelID
	})
	return scoredList[0].modelID
}

func firstStable(available []Candidate) string {
	sorted := append([]Candidate(nil), available...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ModelID < sorted[j].ModelID })
	return sorted[0].ModelID
}

// AssignVariant computes the deterministic A/B variant for (userID, testID)
// using hash(user_id ∥ test_id) mod 1_000_000 / 1_000_000 mapped onto the
// traffic-split CDF. Uses SHA-256 (not MD5, per the portable-cryptographic-
// hash guidance applied uniformly to fingerprinting and A/B assignment).
// trafficSplit's iteration order is made deterministic by sorting variant
// names, since map iteration order is not guaranteed in Go.
func AssignVariant(userID, testID string, trafficSplit map[string]float64) string {
	if len(trafficSplit) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(userID + "\x00" + testID))
	n := binary.BigEndian.Uint64(sum[:8])
	bucket := float64(n%1_000_000) / 1_000_000.0

	variants := make([]string, 0, len(trafficSplit))
	for v := range trafficSplit {
		variants = append(variants, v)
	}
	sort.Strings(variants)

	cumulative := 0.0
	for _, v := range variants {
		cumulative += trafficSplit[v]
		if bucket <= cumulative {
			return v
		}
	}
	return variants[len(variants)-1]
}
