package adapterfactory

import (
	"context"
	"testing"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
	"github.com/ferro-labs/llm-orchestration-gateway/providers"
)

func newTestSecrets(t *testing.T) *secretstore.Store {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")
	s := secretstore.New(0)
	s.Register(secretstore.LocalEnv, secretstore.NewLocalEnvBackend())
	return s
}

func TestNew_UnknownProviderKindErrors(t *testing.T) {
	_, err := New(configstore.ModelConfig{ProviderKind: "made-up"}, newTestSecrets(t))
	if err == nil {
		t.Fatal("expected error for unknown provider_kind")
	}
}

func TestAdapter_ResolveUsesSecretStore(t *testing.T) {
	cfg := configstore.ModelConfig{
		ModelID:      "gpt-4-fast",
		ProviderKind: "openai",
		WireModel:    "gpt-4",
		SecretRef:    secretstore.Ref{Kind: secretstore.LocalEnv, Identifier: "TEST_OPENAI_KEY"},
	}
	a, err := New(cfg, newTestSecrets(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if a.Name() != "gpt-4-fast" {
		t.Fatalf("expected Name to report model_id, got %q", a.Name())
	}
	if !a.SupportsModel("gpt-4-fast") || a.SupportsModel("other") {
		t.Fatal("SupportsModel mismatch")
	}
}

func TestAdapter_MissingSecretFailsHealthCheck(t *testing.T) {
	cfg := configstore.ModelConfig{
		ModelID:      "gpt-4-fast",
		ProviderKind: "openai",
		SecretRef:    secretstore.Ref{Kind: secretstore.LocalEnv, Identifier: "NOT_SET_ENV_VAR"},
	}
	a, err := New(cfg, newTestSecrets(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected HealthCheck to fail for unresolvable secret")
	}
}

func TestAdapter_NoKeyProviderKindNeedsNoSecretRef(t *testing.T) {
	cfg := configstore.ModelConfig{ModelID: "llama-local", ProviderKind: "ollama", WireModel: "llama3"}
	a, err := New(cfg, newTestSecrets(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestFactory_BuildAlwaysIncludesFallback(t *testing.T) {
	f := NewFactory(newTestSecrets(t))
	adapters, err := f.Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := adapters["fallback"]; !ok {
		t.Fatal("expected fallback adapter present with no models configured")
	}
}

func TestFactory_BuildSkipsInactiveModels(t *testing.T) {
	f := NewFactory(newTestSecrets(t))
	models := []configstore.ModelConfig{
		{ModelID: "active-model", ProviderKind: "openai", Active: true,
			SecretRef: secretstore.Ref{Kind: secretstore.LocalEnv, Identifier: "TEST_OPENAI_KEY"}},
		{ModelID: "inactive-model", ProviderKind: "openai", Active: false},
	}
	adapters, err := f.Build(models)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := adapters["active-model"]; !ok {
		t.Fatal("expected active-model adapter present")
	}
	if _, ok := adapters["inactive-model"]; ok {
		t.Fatal("expected inactive-model to be skipped")
	}
}

var _ providers.Provider = (*Adapter)(nil)
