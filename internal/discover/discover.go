// Package discover turns a query into an ordered list of candidate article
// URLs for one source. Two backends exist: an API provider for paged
// custom-search JSON endpoints and an HTML provider that fetches the
// source's rendered search page and harvests links. Both cap their output
// by the effective limits resolved from request, source and global values.
package discover

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

// Global fallbacks applied when neither the request nor the source sets a
// cap.
const (
	DefaultMaxSearchResults = 10
	DefaultMaxArticles      = 5
)

// Provider produces candidate article URLs for a query, at most limit of
// them, in upstream order.
type Provider interface {
	Discover(ctx context.Context, query string, limit int) ([]string, error)
	Name() string
}

// Limits caps one discovery run: how many URLs to collect and how many of
// them the pipeline may process downstream. Zero means unset.
type Limits struct {
	MaxSearchResults int
	MaxArticles      int
}

// EffectiveLimits resolves caps with request > source > global precedence.
// A non-positive result for search results falls back to the default, and
// the search cap is raised to the article cap when it would otherwise
// starve processing.
func EffectiveLimits(requested Limits, src model.SourceConfig, global Limits) Limits {
	out := global
	if src.MaxSearchResults != 0 {
		out.MaxSearchResults = src.MaxSearchResults
	}
	if src.MaxArticlesToProcess != 0 {
		out.MaxArticles = src.MaxArticlesToProcess
	}
	if requested.MaxSearchResults != 0 {
		out.MaxSearchResults = requested.MaxSearchResults
	}
	if requested.MaxArticles != 0 {
		out.MaxArticles = requested.MaxArticles
	}

	if out.MaxArticles <= 0 {
		out.MaxArticles = DefaultMaxArticles
	}
	if out.MaxSearchResults <= 0 {
		log.Warn().Int("max_search_results", out.MaxSearchResults).
			Msg("invalid max_search_results, using default")
		out.MaxSearchResults = DefaultMaxSearchResults
	}
	if out.MaxSearchResults < out.MaxArticles {
		log.Info().
			Int("max_search_results", out.MaxSearchResults).
			Int("max_articles", out.MaxArticles).
			Msg("raising max_search_results to match max_articles_to_process")
		out.MaxSearchResults = out.MaxArticles
	}
	return out
}
