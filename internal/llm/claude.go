package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

const (
	defaultClaudeModel     = "claude-3-5-haiku-20241022"
	defaultClaudeMaxTokens = 1024
	claudeMaxAttempts      = 3
)

// ClaudeConfig configures the Anthropic-backed provider.
type ClaudeConfig struct {
	// APIKey is required; the constructor rejects an empty key so a
	// misconfigured provider never reaches the router.
	APIKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// DefaultModel is used when a request names no model.
	DefaultModel string
	// HTTPClient overrides the transport when set.
	HTTPClient *http.Client
}

// Claude calls the Anthropic Messages API. The system prompt travels as a
// cacheable text block so repeated extraction calls hit the prompt cache.
type Claude struct {
	api          anthropic.Client
	defaultModel string

	// sleep is swappable in tests to skip real backoff waits.
	sleep func(time.Duration)
}

// NewClaude builds the provider or fails when no API key is configured.
func NewClaude(cfg ClaudeConfig) (*Claude, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("claude: %w: no API key configured", ErrAuth)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled here so the backoff schedule stays visible.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{
		api:          anthropic.NewClient(opts...),
		defaultModel: model,
		sleep:        time.Sleep,
	}, nil
}

// Name implements Provider.
func (c *Claude) Name() string { return ProviderClaude }

// DefaultModel reports the model used when a request names none.
func (c *Claude) DefaultModel() string { return c.defaultModel }

// Generate implements Provider. Rate-limit (429) and overload (529) replies
// are retried up to three times with exponential backoff and jitter; auth
// failures return ErrAuth immediately.
func (c *Claude) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{
			Text:         req.System,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}}
	}

	var msg *anthropic.Message
	var err error
	for attempt := 0; attempt < claudeMaxAttempts; attempt++ {
		msg, err = c.api.Messages.New(ctx, params)
		if err == nil {
			break
		}

		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			switch apierr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, fmt.Errorf("claude: %w: status %d", ErrAuth, apierr.StatusCode)
			case http.StatusTooManyRequests, 529:
				if attempt == claudeMaxAttempts-1 {
					break
				}
				wait := 2 * (1 << attempt) * time.Second
				wait += rand.N(500 * time.Millisecond)
				log.Warn().Int("status", apierr.StatusCode).
					Dur("backoff", wait).Int("attempt", attempt+1).
					Msg("claude rate limited, backing off")
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				default:
				}
				c.sleep(wait)
				continue
			}
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("claude generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &Response{
		Text:     sb.String(),
		Model:    string(msg.Model),
		Provider: ProviderClaude,
		Usage: Usage{
			// Cache writes are billed as input, so they count as uncached.
			InputTokens:       msg.Usage.InputTokens + msg.Usage.CacheCreationInputTokens,
			CachedInputTokens: msg.Usage.CacheReadInputTokens,
			OutputTokens:      msg.Usage.OutputTokens,
		},
	}, nil
}

// Models implements ModelLister via the Anthropic models endpoint.
func (c *Claude) Models(ctx context.Context) ([]string, error) {
	page, err := c.api.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("claude list models: %w", err)
	}
	out := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, m.ID)
	}
	return out, nil
}
