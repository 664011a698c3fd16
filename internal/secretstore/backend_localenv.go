package secretstore

import (
	"context"
	"fmt"
	"os"
)

// LocalEnvBackend implements the local-env provider-kind: secrets are
// plain environment variables, for development and testing only.
type LocalEnvBackend struct{}

// NewLocalEnvBackend builds a LocalEnvBackend.
func NewLocalEnvBackend() *LocalEnvBackend { return &LocalEnvBackend{} }

// GetSecret reads identifier as an environment variable name.
func (LocalEnvBackend) GetSecret(_ context.Context, identifier, _ string) (string, error) {
	value, ok := os.LookupEnv(identifier)
	if !ok {
		return "", fmt.Errorf("environment variable %q not set", identifier)
	}
	return value, nil
}

// HealthCheck always reports healthy; reading the environment can't fail.
func (LocalEnvBackend) HealthCheck(context.Context) bool { return true }
