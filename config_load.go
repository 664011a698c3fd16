package aigateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a GatewayOptions file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml). Unset fields are
// filled from DefaultOptions.
func LoadConfig(path string) (*GatewayOptions, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultOptions()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig validates a GatewayOptions for correctness.
func ValidateConfig(cfg GatewayOptions) error {
	if cfg.CacheCapacity <= 0 {
		return fmt.Errorf("cache_capacity must be positive")
	}
	if cfg.UsageFlushBatch <= 0 {
		return fmt.Errorf("usage_flush_batch must be positive")
	}
	if cfg.HealthInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive")
	}
	switch cfg.SecretStoreKind {
	case "local-env", "cloud-managed-A", "cloud-managed-B", "self-hosted":
	default:
		return fmt.Errorf("unknown secret_store_kind: %q", cfg.SecretStoreKind)
	}
	return nil
}
