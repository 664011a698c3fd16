// Package configstore persists the gateway's administrative configuration:
// models, routing rules, A/B tests, budgets and user tiers, plus the
// caching and rate-limit knobs, across restarts. Grounded on
// internal/admin/config_store.go's SQLConfigStore dialect pattern, extended
// to store each top-level config key as its own row-set (rather than one
// opaque JSON blob) so a single admin mutation — adding a model, toggling
// one — does not require re-serializing the whole document.
package configstore

import (
	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
)

// ModelConfig is the Model Configuration entity: a provider-backed model
// the router can select, along with its cost, limits and secret reference.
type ModelConfig struct {
	ModelID                string          `json:"model_id"`
	ProviderKind           string          `json:"provider_kind"` // e.g. "openai", "anthropic", "bedrock"
	WireModel              string          `json:"wire_model"`    // the model name sent to the provider
	SecretRef              secretstore.Ref `json:"secret_ref"`
	Active                 bool            `json:"active"`
	Priority               int             `json:"priority"` // 1=highest ... 5=lowest
	CostPerInputToken      float64         `json:"cost_per_input_token"`
	CostPerOutputToken     float64         `json:"cost_per_output_token"`
	MaxTokens              int             `json:"max_tokens"`
	DefaultTemperature     float64         `json:"default_temperature"`
	ContextWindow          int             `json:"context_window"`
	SupportsStreaming      bool            `json:"supports_streaming"`
	FailureThreshold       int             `json:"failure_threshold"`
	RecoveryTimeoutSeconds int             `json:"recovery_timeout_seconds"`
}

// UserTier is the User Tier Configuration entity.
type UserTier struct {
	TierID              string   `json:"tier_id"`
	AllowedModels       []string `json:"allowed_models"` // empty = all models allowed
	PriorityBoost       int      `json:"priority_boost"`
	RateLimitMultiplier float64  `json:"rate_limit_multiplier"`
}

// CachingConfig is the gateway-wide cache policy.
type CachingConfig struct {
	MaxEntries         int            `json:"max_entries"`
	DefaultTTLSeconds  int            `json:"default_ttl_seconds"`
	TaskTypeTTLSeconds map[string]int `json:"task_type_ttl_seconds"`
}

// RateLimitConfig is the gateway-wide rate-limit policy.
type RateLimitConfig struct {
	GlobalPerMinute float64 `json:"global_per_minute"`
	UserPerMinute   float64 `json:"user_per_minute"`
	ModelPerMinute  float64 `json:"model_per_minute"`
}

// Document is the full administrative configuration, as exported/imported
// through the admin surface and persisted by Store.
type Document struct {
	Models       []ModelConfig
	RoutingRules []router.RoutingRule
	ABTests      []router.ABTest
	Budgets      []budget.Config
	UserTiers    []UserTier
	Caching      CachingConfig
	RateLimit    RateLimitConfig
}
