package llm

import (
	"strings"
	"sync"
)

// Price is USD per million tokens for one model.
type Price struct {
	InputPerMTok       float64
	CachedInputPerMTok float64
	OutputPerMTok      float64
}

// DefaultPrices carries the Anthropic price list for the models this
// pipeline runs. Local models cost nothing and need no entry.
var DefaultPrices = map[string]Price{
	"claude-3-5-haiku-20241022":  {InputPerMTok: 0.80, CachedInputPerMTok: 0.08, OutputPerMTok: 4.00},
	"claude-3-haiku-20240307":    {InputPerMTok: 0.25, CachedInputPerMTok: 0.025, OutputPerMTok: 1.25},
	"claude-3-5-sonnet-20241022": {InputPerMTok: 3.00, CachedInputPerMTok: 0.30, OutputPerMTok: 15.00},
	"claude-3-opus-20240229":     {InputPerMTok: 15.00, CachedInputPerMTok: 1.50, OutputPerMTok: 75.00},
}

// ModelSummary is the accumulated spend for one model.
type ModelSummary struct {
	Requests          int64   `json:"requests"`
	InputTokens       int64   `json:"input_tokens"`
	CachedInputTokens int64   `json:"cached_input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	CostUSD           float64 `json:"cost_usd"`
}

// UsageSummary is the ledger snapshot served by the usage endpoint.
type UsageSummary struct {
	Models                 map[string]ModelSummary `json:"models"`
	TotalRequests          int64                   `json:"total_requests"`
	TotalInputTokens       int64                   `json:"total_input_tokens"`
	TotalCachedInputTokens int64                   `json:"total_cached_input_tokens"`
	TotalOutputTokens      int64                   `json:"total_output_tokens"`
	TotalCostUSD           float64                 `json:"total_cost_usd"`
	CacheHitRate           float64                 `json:"cache_hit_rate"`
	CacheSavingsUSD        float64                 `json:"cache_savings_usd"`
}

type modelUsage struct {
	requests          int64
	inputTokens       int64
	cachedInputTokens int64
	outputTokens      int64
}

// Ledger accumulates per-model token counts and prices them on demand.
type Ledger struct {
	mu       sync.Mutex
	perModel map[string]*modelUsage
	prices   map[string]Price
}

// NewLedger builds a ledger with the given price table; nil means
// DefaultPrices.
func NewLedger(prices map[string]Price) *Ledger {
	if prices == nil {
		prices = DefaultPrices
	}
	return &Ledger{
		perModel: make(map[string]*modelUsage),
		prices:   prices,
	}
}

// Record adds one call's token usage under model.
func (l *Ledger) Record(model string, u Usage) {
	if model == "" {
		model = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.perModel[model]
	if !ok {
		mu = &modelUsage{}
		l.perModel[model] = mu
	}
	mu.requests++
	mu.inputTokens += u.InputTokens
	mu.cachedInputTokens += u.CachedInputTokens
	mu.outputTokens += u.OutputTokens
}

// price finds the model's price entry. Unlisted claude models fall back to
// the haiku tier; everything else is free (local models).
func (l *Ledger) price(model string) Price {
	if p, ok := l.prices[model]; ok {
		return p
	}
	if strings.HasPrefix(model, "claude") {
		if p, ok := l.prices[defaultClaudeModel]; ok {
			return p
		}
	}
	return Price{}
}

// Summary snapshots the ledger: per-model spend, totals, the cache hit rate
// over input tokens, and what the cache saved versus uncached pricing.
func (l *Ledger) Summary() UsageSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := UsageSummary{Models: make(map[string]ModelSummary, len(l.perModel))}
	for model, mu := range l.perModel {
		p := l.price(model)
		cost := float64(mu.inputTokens)/1e6*p.InputPerMTok +
			float64(mu.cachedInputTokens)/1e6*p.CachedInputPerMTok +
			float64(mu.outputTokens)/1e6*p.OutputPerMTok
		out.Models[model] = ModelSummary{
			Requests:          mu.requests,
			InputTokens:       mu.inputTokens,
			CachedInputTokens: mu.cachedInputTokens,
			OutputTokens:      mu.outputTokens,
			CostUSD:           cost,
		}
		out.TotalRequests += mu.requests
		out.TotalInputTokens += mu.inputTokens
		out.TotalCachedInputTokens += mu.cachedInputTokens
		out.TotalOutputTokens += mu.outputTokens
		out.TotalCostUSD += cost
		out.CacheSavingsUSD += float64(mu.cachedInputTokens) / 1e6 * (p.InputPerMTok - p.CachedInputPerMTok)
	}
	if in := out.TotalInputTokens + out.TotalCachedInputTokens; in > 0 {
		out.CacheHitRate = float64(out.TotalCachedInputTokens) / float64(in)
	}
	return out
}

// Reset clears all accumulated usage.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perModel = make(map[string]*modelUsage)
}
