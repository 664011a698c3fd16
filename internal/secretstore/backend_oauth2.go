package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Backend implements the cloud-managed-B provider-kind: a managed
// secrets API authenticated with an OAuth2 client-credentials token
// (golang.org/x/oauth2/clientcredentials), rather than a long-lived static
// key. This is a backend-to-backend credential exchange between the
// gateway and its secrets provider — distinct from the user-facing OAuth2
// login flows the gateway's scope excludes.
type OAuth2Backend struct {
	baseURL string
	client  *http.Client
}

// NewOAuth2Backend mints a token source from the given client-credentials
// configuration and wraps it in an *http.Client that attaches bearer
// tokens automatically (golang.org/x/oauth2's standard Transport wiring).
func NewOAuth2Backend(ctx context.Context, clientID, clientSecret, tokenURL, baseURL string, scopes []string) *OAuth2Backend {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return &OAuth2Backend{
		baseURL: baseURL,
		client:  cfg.Client(ctx),
	}
}

type managedSecretResponse struct {
	Value string `json:"value"`
}

// GetSecret issues an authenticated GET against
// {baseURL}/secrets/{identifier}[?version=...].
func (b *OAuth2Backend) GetSecret(ctx context.Context, identifier, version string) (string, error) {
	url := fmt.Sprintf("%s/secrets/%s", b.baseURL, identifier)
	if version != "" {
		url += "?version=" + version
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call managed secrets api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("managed secrets api returned %d: %s", resp.StatusCode, string(body))
	}

	var out managedSecretResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Value, nil
}

// HealthCheck performs a lightweight HEAD against the base URL; most
// managed secret APIs accept this without requiring a full token exchange
// round trip to be meaningful, but the client's transport still attaches
// a token when one is cached.
func (b *OAuth2Backend) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.baseURL, nil)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
