package configstore

import (
	"strings"
	"testing"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
)

func TestExportImport_RoundTrips(t *testing.T) {
	s, _ := New(nil)
	_ = s.AddModel(ModelConfig{ModelID: "gpt-4", ProviderKind: "openai", Active: true, Priority: 1})
	_ = s.AddRoutingRule(router.RoutingRule{RuleID: "r1", Weight: 2, Active: true, TargetModels: []string{"gpt-4"}})
	_ = s.CreateBudget(budget.Config{BudgetID: "b1", Total: 500, Period: budget.Monthly, AlertThresholds: []float64{0.8}})
	_ = s.CreateABTest(router.ABTest{
		TestID: "t1", Start: time.Now().Add(-time.Hour), End: time.Now().Add(time.Hour),
		TrafficSplit: map[string]float64{"a": 1.0}, Variants: map[string][]string{"a": {"gpt-4"}},
	})
	_ = s.AddUserTier(UserTier{TierID: "gold", PriorityBoost: 1, RateLimitMultiplier: 2})

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	s2, _ := New(nil)
	if err := s2.Import(data); err != nil {
		t.Fatalf("Import: %v", err)
	}

	doc := s2.Document()
	if len(doc.Models) != 1 || doc.Models[0].ModelID != "gpt-4" {
		t.Fatalf("expected model to round-trip, got %+v", doc.Models)
	}
	if len(doc.RoutingRules) != 1 || doc.RoutingRules[0].RuleID != "r1" {
		t.Fatalf("expected routing rule to round-trip, got %+v", doc.RoutingRules)
	}
	if len(doc.Budgets) != 1 || doc.Budgets[0].BudgetID != "b1" {
		t.Fatalf("expected budget to round-trip, got %+v", doc.Budgets)
	}
	if len(doc.ABTests) != 1 || doc.ABTests[0].TestID != "t1" {
		t.Fatalf("expected ab test to round-trip, got %+v", doc.ABTests)
	}
	if len(doc.UserTiers) != 1 || doc.UserTiers[0].TierID != "gold" {
		t.Fatalf("expected user tier to round-trip, got %+v", doc.UserTiers)
	}
}

func TestImport_RejectsMissingRequiredField(t *testing.T) {
	s, _ := New(nil)
	bad := `{
		"models": [{"provider_kind": "openai"}],
		"routing_rules": [], "ab_tests": [], "budgets": [], "user_tiers": [],
		"caching_config": {}, "rate_limit_config": {}
	}`
	err := s.Import([]byte(bad))
	if err == nil {
		t.Fatal("expected schema validation to reject a model missing model_id")
	}
	if !strings.Contains(err.Error(), "schema validation") {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestImport_RejectsInvalidBudgetPeriod(t *testing.T) {
	s, _ := New(nil)
	bad := `{
		"models": [], "routing_rules": [], "ab_tests": [],
		"budgets": [{"budget_id": "b1", "total": 100, "period": "fortnightly"}],
		"user_tiers": [], "caching_config": {}, "rate_limit_config": {}
	}`
	if err := s.Import([]byte(bad)); err == nil {
		t.Fatal("expected schema validation to reject an unrecognized budget period")
	}
}

func TestImport_RejectsMalformedJSON(t *testing.T) {
	s, _ := New(nil)
	if err := s.Import([]byte("not json")); err == nil {
		t.Fatal("expected decode error for malformed JSON")
	}
}
