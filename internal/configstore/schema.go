package configstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema describes the wire shape of an exported/imported
// configuration document: the top-level keys named in the admin export/
// import surface, each an array (or, for the two policy objects, an
// object) of loosely-typed entities. It is intentionally permissive about
// per-entity fields — validation here guards the document's shape, not
// every business rule, which Store's typed mutation methods already
// enforce on write.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["models", "routing_rules", "ab_tests", "budgets", "user_tiers", "caching_config", "rate_limit_config"],
	"properties": {
		"models": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["model_id", "provider_kind"],
				"properties": {
					"model_id": {"type": "string", "minLength": 1},
					"provider_kind": {"type": "string", "minLength": 1}
				}
			}
		},
		"routing_rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["rule_id"],
				"properties": {
					"rule_id": {"type": "string", "minLength": 1},
					"weight": {"type": "integer"}
				}
			}
		},
		"ab_tests": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["test_id", "traffic_split"],
				"properties": {
					"test_id": {"type": "string", "minLength": 1}
				}
			}
		},
		"budgets": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["budget_id", "total", "period"],
				"properties": {
					"budget_id": {"type": "string", "minLength": 1},
					"total": {"type": "number", "minimum": 0},
					"period": {"type": "string", "enum": ["daily", "weekly", "monthly", "quarterly"]}
				}
			}
		},
		"user_tiers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["tier_id"],
				"properties": {
					"tier_id": {"type": "string", "minLength": 1}
				}
			}
		},
		"caching_config": {"type": "object"},
		"rate_limit_config": {"type": "object"}
	}
}`

var documentJSONSchema = mustCompileDocumentSchema()

func mustCompileDocumentSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("configdoc.json", strings.NewReader(documentSchema)); err != nil {
		panic(fmt.Sprintf("configstore: invalid embedded schema: %v", err))
	}
	schema, err := compiler.Compile("configdoc.json")
	if err != nil {
		panic(fmt.Sprintf("configstore: compile embedded schema: %v", err))
	}
	return schema
}

// wireDocument is the snake_case export/import shape named in the admin
// surface; Document itself stays Go-idiomatic CamelCase internally.
type wireDocument struct {
	Models          []ModelConfig   `json:"models"`
	RoutingRules    []wireRule      `json:"routing_rules"`
	ABTests         []wireABTest    `json:"ab_tests"`
	Budgets         []wireBudget    `json:"budgets"`
	UserTiers       []wireUserTier  `json:"user_tiers"`
	CachingConfig   CachingConfig   `json:"caching_config"`
	RateLimitConfig RateLimitConfig `json:"rate_limit_config"`
}

type wireRule struct {
	RuleID       string            `json:"rule_id"`
	Conditions   map[string]string `json:"conditions"`
	TargetModels []string          `json:"target_models"`
	Weight       int               `json:"weight"`
	Active       bool              `json:"active"`
}

type wireABTest struct {
	TestID       string              `json:"test_id"`
	Start        string              `json:"start"`
	End          string              `json:"end"`
	TrafficSplit map[string]float64  `json:"traffic_split"`
	Variants     map[string][]string `json:"variants"`
}

type wireBudget struct {
	BudgetID           string    `json:"budget_id"`
	Total              float64   `json:"total"`
	Period             string    `json:"period"`
	AlertThresholds    []float64 `json:"alert_thresholds"`
	AutoDisableAtLimit bool      `json:"auto_disable_at_limit"`
	Groups             []string  `json:"groups"`
}

type wireUserTier struct {
	TierID              string   `json:"tier_id"`
	AllowedModels       []string `json:"allowed_models"`
	PriorityBoost       int      `json:"priority_boost"`
	RateLimitMultiplier float64  `json:"rate_limit_multiplier"`
}

// Export serializes the current document to the wire shape (snake_case
// keys, RFC3339 timestamps), suitable for backup or transfer to another
// gateway instance.
func (s *Store) Export() ([]byte, error) {
	doc := s.Document()
	wire := wireDocument{
		Models:          doc.Models,
		CachingConfig:   doc.Caching,
		RateLimitConfig: doc.RateLimit,
	}
	for _, r := range doc.RoutingRules {
		wire.RoutingRules = append(wire.RoutingRules, wireRule{
			RuleID: r.RuleID, Conditions: r.Conditions, TargetModels: r.TargetModels,
			Weight: r.Weight, Active: r.Active,
		})
	}
	for _, t := range doc.ABTests {
		wire.ABTests = append(wire.ABTests, wireABTest{
			TestID: t.TestID, Start: t.Start.Format(rfc3339), End: t.End.Format(rfc3339),
			TrafficSplit: t.TrafficSplit, Variants: t.Variants,
		})
	}
	for _, b := range doc.Budgets {
		wire.Budgets = append(wire.Budgets, wireBudget{
			BudgetID: b.BudgetID, Total: b.Total, Period: string(b.Period),
			AlertThresholds: b.AlertThresholds, AutoDisableAtLimit: b.AutoDisableAtLimit, Groups: b.Groups,
		})
	}
	for _, t := range doc.UserTiers {
		wire.UserTiers = append(wire.UserTiers, wireUserTier{
			TierID: t.TierID, AllowedModels: t.AllowedModels,
			PriorityBoost: t.PriorityBoost, RateLimitMultiplier: t.RateLimitMultiplier,
		})
	}
	return json.MarshalIndent(wire, "", "  ")
}

// Import validates data against the configuration document schema and, if
// it passes, replaces the store's whole document.
func (s *Store) Import(data []byte) error {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("decode import document: %w", err)
	}
	if err := documentJSONSchema.Validate(generic); err != nil {
		return fmt.Errorf("import document failed schema validation: %w", err)
	}

	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode import document: %w", err)
	}

	doc, err := wire.toDocument()
	if err != nil {
		return err
	}
	return s.Replace(doc)
}
