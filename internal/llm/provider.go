// Package llm routes generation requests to language-model providers. Two
// backends are supported: Anthropic Claude (with prompt caching) and any
// OpenAI-compatible endpoint such as a local Ollama server. A Router fronts
// them with a concurrency cap, optional cross-provider fallback and a usage
// ledger that tracks token spend per model.
package llm

import (
	"context"
	"errors"
)

// Provider names as used in configuration and request routing.
const (
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// ErrAuth marks credential failures. The router treats providers returning
// it as unhealthy for the remainder of the run; retrying cannot help.
var ErrAuth = errors.New("llm authentication failed")

// Request is one generation call. Model may be empty to use the provider's
// default; Temperature zero is passed through as zero, not omitted.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Usage counts the tokens one call consumed. Cached input tokens are those
// served from the provider's prompt cache; for providers without caching the
// field stays zero.
type Usage struct {
	InputTokens       int64
	CachedInputTokens int64
	OutputTokens      int64
}

// Response is a completed generation. FallbackUsed and OriginalProvider are
// set by the router when the answering provider is not the one asked for.
type Response struct {
	Text             string
	Model            string
	Provider         string
	Usage            Usage
	FallbackUsed     bool
	OriginalProvider string
}

// Provider generates text. Implementations are safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// ModelLister is an optional capability: providers that can enumerate their
// available models implement it. Callers detect it with a type assertion.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}
