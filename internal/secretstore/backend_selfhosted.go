package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SelfHostedBackend implements the self-hosted provider-kind: a
// HashiCorp-Vault-style KV store reached over plain HTTP with a static
// token, following the same raw net/http request/response pattern the
// gateway's own non-SDK provider adapters use (see providers/perplexity.go).
type SelfHostedBackend struct {
	vaultURL   string
	token      string
	httpClient *http.Client
}

// NewSelfHostedBackend builds a client against a Vault KV-v2-style HTTP API.
func NewSelfHostedBackend(vaultURL, token string) *SelfHostedBackend {
	return &SelfHostedBackend{
		vaultURL:   vaultURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type vaultKVResponse struct {
	Data struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// GetSecret reads path identifier from the KV v2 "data" mount and returns
// the "value" key. version, if non-empty, is passed as the ?version=
// query parameter per Vault's versioned-secret semantics.
func (b *SelfHostedBackend) GetSecret(ctx context.Context, identifier, version string) (string, error) {
	url := fmt.Sprintf("%s/v1/secret/data/%s", b.vaultURL, identifier)
	if version != "" {
		url += "?version=" + version
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Vault-Token", b.token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call vault: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vault returned %d: %s", resp.StatusCode, string(body))
	}

	var out vaultKVResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	value, ok := out.Data.Data["value"]
	if !ok {
		return "", fmt.Errorf("secret %q has no \"value\" key", identifier)
	}
	return value, nil
}

// HealthCheck probes Vault's health endpoint.
func (b *SelfHostedBackend) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.vaultURL+"/v1/sys/health", nil)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
