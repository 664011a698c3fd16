package secretstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssigv4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSBackend implements the cloud-managed-A provider-kind: a
// Secrets-Manager-compatible vault reached by hand-signing requests with
// the same aws-sdk-go-v2 credential chain the Bedrock adapter already
// uses (config.LoadDefaultConfig + aws-sdk-go-v2/credentials), rather than
// depending on the undeclared service/secretsmanager package.
type AWSBackend struct {
	region     string
	endpoint   string // e.g. https://secretsmanager.us-east-1.amazonaws.com
	httpClient *http.Client
	credsFn    func(ctx context.Context) (aws.Credentials, error)
}

// NewAWSBackend builds an AWSBackend from the default AWS credential chain
// (environment, shared config, IAM role) for the given region. endpoint
// defaults to the standard Secrets Manager regional endpoint.
func NewAWSBackend(ctx context.Context, region, endpoint string, staticAccessKey, staticSecretKey string) (*AWSBackend, error) {
	if region == "" {
		region = "us-east-1"
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://secretsmanager.%s.amazonaws.com", region)
	}

	var optFns []func(*config.LoadOptions) error
	optFns = append(optFns, config.WithRegion(region))
	if staticAccessKey != "" && staticSecretKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(staticAccessKey, staticSecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSBackend{
		region:     region,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		credsFn:    cfg.Credentials.Retrieve,
	}, nil
}

type getSecretValueRequest struct {
	SecretId  string `json:"SecretId"`
	VersionId string `json:"VersionId,omitempty"`
}

type getSecretValueResponse struct {
	SecretString string `json:"SecretString"`
}

// GetSecret performs a Sigv4-signed POST against the Secrets Manager
// GetSecretValue action.
func (b *AWSBackend) GetSecret(ctx context.Context, identifier, version string) (string, error) {
	body, err := json.Marshal(getSecretValueRequest{SecretId: identifier, VersionId: version})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", "secretsmanager.GetSecretValue")

	creds, err := b.credsFn(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve aws credentials: %w", err)
	}

	payloadHash := sha256.Sum256(body)
	signer := awssigv4.NewSigner()
	if err := signer.SignHTTP(ctx, creds, req, hex.EncodeToString(payloadHash[:]), "secretsmanager", b.region, time.Now()); err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call secrets manager: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("secrets manager returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out getSecretValueResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.SecretString, nil
}

// HealthCheck confirms the credential chain still resolves; it does not
// make a network call, matching the Secret Store contract's "cheap" rule.
func (b *AWSBackend) HealthCheck(ctx context.Context) bool {
	_, err := b.credsFn(ctx)
	return err == nil
}
