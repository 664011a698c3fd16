package configstore

import (
	"fmt"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
)

const rfc3339 = time.RFC3339

func (w wireDocument) toDocument() (Document, error) {
	doc := Document{
		Models:    w.Models,
		Caching:   w.CachingConfig,
		RateLimit: w.RateLimitConfig,
	}

	for _, r := range w.RoutingRules {
		doc.RoutingRules = append(doc.RoutingRules, router.RoutingRule{
			RuleID: r.RuleID, Conditions: r.Conditions, TargetModels: r.TargetModels,
			Weight: r.Weight, Active: r.Active,
		})
	}

	for _, t := range w.ABTests {
		start, err := time.Parse(rfc3339, t.Start)
		if err != nil {
			return Document{}, fmt.Errorf("ab test %q: parse start: %w", t.TestID, err)
		}
		end, err := time.Parse(rfc3339, t.End)
		if err != nil {
			return Document{}, fmt.Errorf("ab test %q: parse end: %w", t.TestID, err)
		}
		doc.ABTests = append(doc.ABTests, router.ABTest{
			TestID: t.TestID, Start: start, End: end,
			TrafficSplit: t.TrafficSplit, Variants: t.Variants,
		})
	}

	for _, b := range w.Budgets {
		doc.Budgets = append(doc.Budgets, budget.Config{
			BudgetID: b.BudgetID, Total: b.Total, Period: budget.Period(b.Period),
			AlertThresholds: b.AlertThresholds, AutoDisableAtLimit: b.AutoDisableAtLimit, Groups: b.Groups,
		})
	}

	for _, t := range w.UserTiers {
		doc.UserTiers = append(doc.UserTiers, UserTier{
			TierID: t.TierID, AllowedModels: t.AllowedModels,
			PriorityBoost: t.PriorityBoost, RateLimitMultiplier: t.RateLimitMultiplier,
		})
	}

	return doc, nil
}
