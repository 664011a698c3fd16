package aigateway

import "time"

// GatewayOptions holds the gateway's process-level operating parameters —
// timeouts, cache sizing, health-check cadence, usage-flush batching, and
// which Secret Store backend to use. Model/routing/budget/tier
// configuration is NOT here: it lives in the Configuration Store
// (internal/configstore) and is loaded separately via Initialize.
//
// Grounded on the teacher's Config/StrategyConfig (this is the same "one
// struct loaded from YAML/JSON at startup" role), generalized from
// routing-strategy knobs to the environment inputs spec.md §6.6 names.
type GatewayOptions struct {
	// SecretStoreKind selects which Secret Store backend provider-kind
	// resolves model secrets through by default, mirroring SECRET_STORE_KIND.
	SecretStoreKind string `json:"secret_store_kind" yaml:"secret_store_kind"`

	CacheCapacity    int           `json:"cache_capacity" yaml:"cache_capacity"`
	CacheDefaultTTL  time.Duration `json:"cache_default_ttl" yaml:"cache_default_ttl"`
	HealthInterval   time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	RequestTimeout   time.Duration `json:"request_timeout" yaml:"request_timeout"`
	ProviderTimeout  time.Duration `json:"provider_timeout" yaml:"provider_timeout"`
	HealthTimeout    time.Duration `json:"health_check_timeout" yaml:"health_check_timeout"`
	UsageFlushBatch  int           `json:"usage_flush_batch" yaml:"usage_flush_batch"`
}

// DefaultOptions returns the gateway's documented defaults, per the
// Concurrency & Resource Model's cancellation/timeout defaults and the
// Cache/Usage Logger components' stated defaults.
func DefaultOptions() GatewayOptions {
	return GatewayOptions{
		SecretStoreKind: "local-env",
		CacheCapacity:   10000,
		CacheDefaultTTL: time.Hour,
		HealthInterval:  60 * time.Second,
		RequestTimeout:  30 * time.Second,
		ProviderTimeout: 25 * time.Second,
		HealthTimeout:   5 * time.Second,
		UsageFlushBatch: 100,
	}
}

// withDefaults fills any zero-valued field of o with DefaultOptions's value.
func (o GatewayOptions) withDefaults() GatewayOptions {
	d := DefaultOptions()
	if o.SecretStoreKind == "" {
		o.SecretStoreKind = d.SecretStoreKind
	}
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = d.CacheCapacity
	}
	if o.CacheDefaultTTL <= 0 {
		o.CacheDefaultTTL = d.CacheDefaultTTL
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = d.HealthInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = d.ProviderTimeout
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = d.HealthTimeout
	}
	if o.UsageFlushBatch <= 0 {
		o.UsageFlushBatch = d.UsageFlushBatch
	}
	return o
}
