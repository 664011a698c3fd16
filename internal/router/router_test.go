package router

import (
	"testing"
	"time"
)

func TestAssignVariant_Stable(t *testing.T) {
	split := map[string]float64{"A": 0.5, "B": 0.5}
	first := AssignVariant("u1", "t1", split)
	for i := 0; i < 10; i++ {
		if got := AssignVariant("u1", "t1", split); got != first {
			t.Fatalf("expected stable variant, got %s then %s", first, got)
		}
	}
}

func TestAssignVariant_DifferentUsersCanDiffer(t *testing.T) {
	split := map[string]float64{"A": 0.5, "B": 0.5}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		userID := time.Duration(i).String()
		seen[AssignVariant(userID, "t1", split)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected both variants to appear across many users, got %v", seen)
	}
}

func TestSelect_ABTestTakesPriorityOverRules(t *testing.T) {
	r := New(
		[]RoutingRule{{RuleID: "r1", Active: true, Weight: 100, TargetModels: []string{"m2"}}},
		[]ABTest{{
			TestID:       "t1",
			Start:        time.Now().Add(-time.Hour),
			End:          time.Now().Add(time.Hour),
			TrafficSplit: map[string]float64{"A": 1.0},
			Variants:     map[string][]string{"A": {"m1"}},
		}},
	)
	available := []Candidate{{ModelID: "m1", Priority: 1}, {ModelID: "m2", Priority: 1}}
	got := r.Select(Request{UserID: "u1"}, available, time.Now())
	if got != "m1" {
		t.Fatalf("expected A/B test to win, got %s", got)
	}
}

func TestSelect_RoutingRuleDescendingWeight(t *testing.T) {
	r := New([]RoutingRule{
		{RuleID: "low", Active: true, Weight: 1, Conditions: map[string]string{"x": "y"}, TargetModels: []string{"m2"}},
		{RuleID: "high", Active: true, Weight: 10, Conditions: map[string]string{"x": "y"}, TargetModels: []string{"m1"}},
	}, nil)
	available := []Candidate{{ModelID: "m1", Priority: 1}, {ModelID: "m2", Priority: 1}}
	got := r.Select(Request{Context: map[string]string{"x": "y"}}, available, time.Now())
	if got != "m1" {
		t.Fatalf("expected higher-weight rule to win, got %s", got)
	}
}

func TestSelect_PriorityAndTierBoost(t *testing.T) {
	r := New(nil, nil)
	available := []Candidate{{ModelID: "m1", Priority: 3}, {ModelID: "m2", Priority: 2}}
	// m2 has better raw priority, but m1 gets a +2 boost making it 1 (better).
	got := r.Select(Request{Tier: Tier{PriorityBoost: 0}}, available, time.Now())
	if got != "m2" {
		t.Fatalf("expected m2 (lower raw priority) without boost, got %s", got)
	}
}

func TestSelect_TierRestrictsAccessibleModels(t *testing.T) {
	r := New(nil, nil)
	available := []Candidate{{ModelID: "m1", Priority: 1}, {ModelID: "m2", Priority: 2}}
	got := r.Select(Request{Tier: Tier{AllowedModels: []string{"m2"}}}, available, time.Now())
	if got != "m2" {
		t.Fatalf("expected tier-restricted selection of m2, got %s", got)
	}
}

func TestSelect_ABTestNeverReturnsModelOutsideTier(t *testing.T) {
	r := New(nil, []ABTest{{
		TestID:       "t1",
		Start:        time.Now().Add(-time.Hour),
		End:          time.Now().Add(time.Hour),
		TrafficSplit: map[string]float64{"A": 1.0},
		Variants:     map[string][]string{"A": {"m1"}},
	}})
	available := []Candidate{{ModelID: "m1", Priority: 1}, {ModelID: "m2", Priority: 2}}
	got := r.Select(Request{UserID: "u1", Tier: Tier{AllowedModels: []string{"m2"}}}, available, time.Now())
	if got != "m2" {
		t.Fatalf("expected tier restriction to block the A/B-assigned model, got %s", got)
	}
}

func TestSelect_RoutingRuleNeverReturnsModelOutsideTier(t *testing.T) {
	r := New([]RoutingRule{
		{RuleID: "r1", Active: true, Weight: 100, Conditions: map[string]string{"x": "y"}, TargetModels: []string{"m1"}},
	}, nil)
	available := []Candidate{{ModelID: "m1", Priority: 1}, {ModelID: "m2", Priority: 2}}
	got := r.Select(Request{Context: map[string]string{"x": "y"}, Tier: Tier{AllowedModels: []string{"m2"}}}, available, time.Now())
	if got != "m2" {
		t.Fatalf("expected tier restriction to block the rule-targeted model, got %s", got)
	}
}

func TestSelect_TieBrokenAlphabetically(t *testing.T) {
	r := New(nil, nil)
	available := []Candidate{{ModelID: "zeta", Priority: 1}, {ModelID: "alpha", Priority: 1}}
	got := r.Select(Request{}, available, time.Now())
	if got != "alpha" {
		t.Fatalf("expected alphabetical tie-break, got %s", got)
	}
}

func TestSelect_FallsBackToFirstAvailableStable(t *testing.T) {
	r := New(nil, nil)
	available := []Candidate{{ModelID: "zeta", Priority: 5}, {ModelID: "alpha", Priority: 5}}
	got := r.Select(Request{}, available, time.Now())
	if got != "alpha" {
		t.Fatalf("expected stable first-available fallback, got %s", got)
	}
}

func TestSelect_EmptyReturnsEmptyString(t *testing.T) {
	r := New(nil, nil)
	if got := r.Select(Request{}, nil, time.Now()); got != "" {
		t.Fatalf("expected empty selection for no candidates, got %s", got)
	}
}
