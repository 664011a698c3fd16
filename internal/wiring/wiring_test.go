package wiring

import (
	"context"
	"testing"
)

// TestBuild_DefaultsToInMemory exercises Build with no environment
// overrides: no CONFIG_STORE_DSN, USAGE_LOG_DSN, or SECRET_STORE_KIND
// set means an in-memory config store, a no-op usage writer, and the
// local-env secret backend — the same zero-config path an operator
// gets from a bare `go run ./cmd/gatewayd`.
func TestBuild_DefaultsToInMemory(t *testing.T) {
	for _, key := range []string{"CONFIG_STORE_DSN", "USAGE_LOG_DSN", "SECRET_STORE_KIND", "GATEWAY_CONFIG"} {
		t.Setenv(key, "")
	}

	built, err := Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() {
		if err := built.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	if built.Gateway == nil {
		t.Fatal("expected a non-nil Gateway")
	}
	if built.ConfigStore == nil {
		t.Fatal("expected a non-nil ConfigStore")
	}
}

func TestBuildSecretStore_UnknownKindErrors(t *testing.T) {
	_, err := buildSecretStore(context.Background(), "not-a-real-kind")
	if err == nil {
		t.Fatal("expected an error for an unrecognized SECRET_STORE_KIND")
	}
}

func TestEnvSeconds_IgnoresNonPositive(t *testing.T) {
	t.Setenv("TEST_SECONDS", "0")
	if got := envSeconds("TEST_SECONDS"); got != 0 {
		t.Errorf("expected 0 for a non-positive value, got %v", got)
	}

	t.Setenv("TEST_SECONDS", "5")
	if got := envSeconds("TEST_SECONDS"); got.Seconds() != 5 {
		t.Errorf("expected 5s, got %v", got)
	}
}
