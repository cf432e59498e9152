// Package providers contains one adapter per model provider behind a
// uniform call contract: task in, generated code plus token count out.
// Adapters never retry; failure handling belongs to the dispatcher.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Icannotcodelol/onnyx/internal/types"
)

// Result is a successful provider response.
type Result struct {
	Code   string
	Tokens int
}

// Provider is the uniform adapter contract. Call issues at most one
// upstream request; when no credential is configured it returns the
// adapter's offline fallback snippet so the downstream pipeline stays
// exercised in development.
type Provider interface {
	Name() string
	Call(ctx context.Context, task types.TaskSpec, systemPrompt string) (*Result, error)
}

// CallError reports an upstream provider failure: non-2xx status or a
// response missing the expected content field.
type CallError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// Config carries the per-provider credentials. Any key may be empty.
type Config struct {
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string
	DeepSeekKey  string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Load builds the provider registry keyed by lowercased provider name.
// The registry is short-lived: it is constructed fresh per dispatch
// invocation so tests can inject fakes per call.
func Load(cfg Config) map[string]Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	return map[string]Provider{
		"openai":    &openAIProvider{apiKey: cfg.OpenAIKey, client: client},
		"anthropic": &anthropicProvider{apiKey: cfg.AnthropicKey, client: client},
		"google":    &googleProvider{apiKey: cfg.GoogleKey},
		"deepseek":  &deepSeekProvider{apiKey: cfg.DeepSeekKey, client: client},
	}
}
