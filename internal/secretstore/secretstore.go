// Package secretstore implements the gateway's Secret Store client: lazy,
// per-reference TTL-cached retrieval of provider API keys across pluggable
// backends keyed by provider-kind. Grounded on original_source's
// KeyVaultClientService (backend/core/llm_orchestration/key_vault.py),
// whose four backends (Azure/AWS/HashiCorp/local-env) map onto this
// package's cloud-managed-A / cloud-managed-B / self-hosted / local-env
// provider-kinds.
package secretstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Kind enumerates the provider-kinds a Secret Reference may name.
type Kind string

const (
	CloudManagedA Kind = "cloud-managed-A"
	CloudManagedB Kind = "cloud-managed-B"
	SelfHosted    Kind = "self-hosted"
	LocalEnv      Kind = "local-env"
)

// Ref is an opaque reference to a secret, never dereferenced eagerly.
type Ref struct {
	Kind       Kind   `json:"kind"`
	Identifier string `json:"identifier"`
	Version    string `json:"version,omitempty"`
}

func (r Ref) cacheKey() string {
	return fmt.Sprintf("%s:%s:%s", r.Kind, r.Identifier, r.Version)
}

// Backend resolves a single provider-kind's secrets.
type Backend interface {
	GetSecret(ctx context.Context, identifier, version string) (string, error)
	HealthCheck(ctx context.Context) bool
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Store is the central, cached Secret Store client the gateway uses. It
// registers one Backend per Kind and caches resolved values per-ref for a
// configurable TTL (default 1 hour), mirroring KeyVaultClientService's
// in-memory cache.
type Store struct {
	mu       sync.RWMutex
	backends map[Kind]Backend
	cache    map[string]cacheEntry
	ttl      time.Duration
}

// New creates an empty Store with the given per-ref cache TTL. ttl<=0
// defaults to one hour.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		backends: make(map[Kind]Backend),
		cache:    make(map[string]cacheEntry),
		ttl:      ttl,
	}
}

// Register wires a Backend for a given provider-kind.
func (s *Store) Register(kind Kind, b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends[kind] = b
}

// GetSecret resolves ref to its secret value, serving from the TTL cache
// when possible. Negative lookups (errors) are never cached, so a
// transient backend outage does not poison the cache.
func (s *Store) GetSecret(ctx context.Context, ref Ref) (string, error) {
	key := ref.cacheKey()

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	s.mu.RLock()
	backend, ok := s.backends[ref.Kind]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("secretstore: no backend registered for provider-kind %q", ref.Kind)
	}

	value, err := backend.GetSecret(ctx, ref.Identifier, ref.Version)
	if err != nil {
		return "", fmt.Errorf("secretstore: retrieve %q: %w", ref.Identifier, err)
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return value, nil
}

// HealthCheckAll probes every registered backend.
func (s *Store) HealthCheckAll(ctx context.Context) map[Kind]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Kind]bool, len(s.backends))
	for kind, b := range s.backends {
		out[kind] = b.HealthCheck(ctx)
	}
	return out
}

// ClearCache drops all cached secret values, forcing the next GetSecret
// call per ref to hit its backend again.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}
