package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOllamaModel = "llama3.2"

// OllamaConfig configures the OpenAI-compatible provider. Ollama exposes an
// /v1 endpoint speaking the chat-completions dialect, so the same provider
// also serves hosted OpenAI-compatible gateways and the local stub server.
type OllamaConfig struct {
	// BaseURL points at the endpoint, e.g. http://localhost:11434/v1.
	BaseURL string
	// APIKey is optional; local servers usually ignore it.
	APIKey string
	// DefaultModel is used when a request names no model.
	DefaultModel string
	// HTTPClient overrides the transport when set.
	HTTPClient *http.Client
}

// Ollama talks to an OpenAI-compatible chat endpoint. There is no prompt
// cache on this path, so the system prompt is merged into the user prompt
// and every input token is billed uncached.
type Ollama struct {
	client       *openai.Client
	defaultModel string
}

// NewOllama builds the provider. An empty base URL falls back to the
// go-openai default, which is rarely what a local deployment wants, so
// configuration should always set one.
func NewOllama(cfg OllamaConfig) *Ollama {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}
	c := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		client:       openai.NewClientWithConfig(c),
		defaultModel: model,
	}
}

// Name implements Provider.
func (o *Ollama) Name() string { return ProviderOllama }

// DefaultModel reports the model used when a request names none.
func (o *Ollama) DefaultModel() string { return o.defaultModel }

// Generate implements Provider.
func (o *Ollama) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = o.defaultModel
	}
	content := req.Prompt
	if req.System != "" {
		content = req.System + "\n\n" + req.Prompt
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ollama generate: empty choices")
	}

	return &Response{
		Text:     resp.Choices[0].Message.Content,
		Model:    model,
		Provider: ProviderOllama,
		Usage: Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}, nil
}

// Models implements ModelLister via the OpenAI-compatible model listing.
func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list models: %w", err)
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.ID)
	}
	return out, nil
}
