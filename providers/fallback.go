package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// fallbackPhrases is the deterministic phrase pool the Fallback provider
// draws from. Selection is hash(prompt) mod len(fallbackPhrases), so the
// same prompt always yields the same synthetic reply across processes.
var fallbackPhrases = []string{
	"I'm unable to reach a model provider right now, but here is a placeholder response so your pipeline can continue.",
	"This is a synthetic fallback reply. No upstream provider was available to answer your request.",
	"Service is temporarily degraded; this response was generated locally without contacting a model provider.",
	"No healthy model could be reached for this request. Returning a deterministic placeholder instead.",
}

// FallbackProvider always answers, at zero cost, with a deterministic
// synthetic reply. It exists so the gateway always has something to route
// to — per the Model Configuration invariant that an always-present
// fallback adapter is instantiated even if no other models are configured.
type FallbackProvider struct{}

// NewFallback creates the synthetic fallback adapter.
func NewFallback() *FallbackProvider { return &FallbackProvider{} }

func (f *FallbackProvider) Name() string { return "fallback" }

// Complete deterministically synthesizes a reply from the last user
// message's content, never making a network call and never failing.
func (f *FallbackProvider) Complete(_ context.Context, req Request) (*Response, error) {
	prompt := lastUserContent(req.Messages)
	phrase := fallbackPhrases[phraseIndex(prompt)]

	return &Response{
		Model:    "fallback",
		Provider: f.Name(),
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: RoleAssistant, Content: phrase},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(phrase) / 4,
			TotalTokens:      len(prompt)/4 + len(phrase)/4,
		},
	}, nil
}

// HealthCheck always succeeds: the fallback adapter has no external
// dependency to fail.
func (f *FallbackProvider) HealthCheck(context.Context) error { return nil }

func (f *FallbackProvider) SupportedModels() []string { return []string{"fallback"} }

func (f *FallbackProvider) SupportsModel(model string) bool { return true }

func (f *FallbackProvider) Models() []ModelInfo {
	return []ModelInfo{{ID: "fallback", Object: "model", OwnedBy: "gateway"}}
}

func phraseIndex(prompt string) int {
	sum := sha256.Sum256([]byte(prompt))
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(len(fallbackPhrases)))
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
