package aigateway

import (
	"strings"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
)

// Request is the Gateway Request data model: the caller-facing envelope
// ProcessRequest/ProcessStream accept, distinct from providers.Request
// (the provider-wire-level type an adapter sends upstream).
type Request struct {
	Prompt      string
	UserID      string
	TaskType    string
	UserTier    string
	SessionID   string
	MaxTokens   *int
	Temperature *float64
	Stream      bool
	Priority    int
	Metadata    map[string]string

	// Populated by the Request Enricher; callers need not set these.
	RequestID string
	Timestamp time.Time
}

// Response is the Gateway Response data model.
type Response struct {
	Content      string
	ModelUsed    string
	Provider     string
	RequestID    string
	TokensUsed   int
	CostEstimate float64
	LatencyMS    int64
	Cached       bool
	UserID       string
	SessionID    string
	Metadata     map[string]any
}

const (
	minPromptLen = 1
	maxPromptLen = 50000
	maxTokensCap = 32000
)

// enrich implements the Request Enricher: attaches request_id/timestamp,
// normalizes prompt whitespace, and rejects empty/oversized prompts or
// out-of-bounds max_tokens/temperature with InvalidRequest.
func enrich(req Request, newRequestID func() string) (Request, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if len(req.Prompt) < minPromptLen {
		return req, gwerrors.New(gwerrors.InvalidRequest, "prompt must not be empty")
	}
	if len(req.Prompt) > maxPromptLen {
		return req, gwerrors.New(gwerrors.InvalidRequest, "prompt exceeds maximum length")
	}
	if req.MaxTokens != nil && (*req.MaxTokens < 1 || *req.MaxTokens > maxTokensCap) {
		return req, gwerrors.New(gwerrors.InvalidRequest, "max_tokens out of range")
	}
	if req.Temperature != nil && (*req.Temperature < 0.0 || *req.Temperature > 2.0) {
		return req, gwerrors.New(gwerrors.InvalidRequest, "temperature out of range")
	}

	if req.RequestID == "" {
		req.RequestID = newRequestID()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return req, nil
}
