// Package social fetches full post details from social platforms and keeps
// them, together with any LLM analysis derived from them, in TTL caches so
// repeat lookups of the same URL cost nothing. Each platform has an adapter;
// an adapter with missing credentials reports no content rather than an
// error, so an unconfigured platform degrades to the generic web-page path
// instead of failing a whole search.
package social

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/cache"
	"github.com/osintscope/eventsearch/internal/model"
)

// Platform names as stored in cache keys and SocialContent.Platform.
const (
	PlatformYouTube   = "youtube"
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	// PlatformGoogle is the catch-all for ordinary web pages reached from
	// search results.
	PlatformGoogle = "google"
)

// DefaultTTL bounds cached content and analyses when none is configured.
const DefaultTTL = 24 * time.Hour

// DetectPlatform classifies a URL by host substring. Anything that is not
// a known social platform falls through to the generic web-page path.
func DetectPlatform(rawURL string) string {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(u, "twitter.com") || strings.Contains(u, "x.com"):
		return PlatformTwitter
	case strings.Contains(u, "facebook.com") || strings.Contains(u, "fb.com"):
		return PlatformFacebook
	case strings.Contains(u, "instagram.com"):
		return PlatformInstagram
	}
	return PlatformGoogle
}

// Fetcher is the adapter contract. A nil *SocialContent with a nil error
// means the adapter could not serve the URL (no credentials, no match);
// errors are reserved for transport and decode failures.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error)
}

// Aggregator routes content fetches to platform adapters and caches both
// the fetched content and extracted events. Exported fields configure it;
// the zero value routes every URL to the web-page path and caches for
// DefaultTTL.
type Aggregator struct {
	YouTube   Fetcher
	Twitter   Fetcher
	Facebook  Fetcher
	Instagram Fetcher
	Web       Fetcher

	// Scraper substitutes the third-party scraping API for the native
	// adapter on the platforms named in UseScraperFor.
	Scraper       *ScrapeCreators
	UseScraperFor map[string]bool

	// TTL bounds cached entries. Zero means DefaultTTL.
	TTL time.Duration

	once     sync.Once
	content  *cache.Cache[model.SocialContent]
	analysis *cache.Cache[model.Event]
}

// FetchOptions adjusts one FetchContent call.
type FetchOptions struct {
	// Platform overrides URL-based detection when set.
	Platform string
	// ForceRefresh bypasses the content cache for this call. The fresh
	// result still replaces the cached one.
	ForceRefresh bool
	// Model scopes the analysis attached on a cache hit.
	Model string
}

func (a *Aggregator) init() {
	a.once.Do(func() {
		ttl := a.TTL
		if ttl == 0 {
			ttl = DefaultTTL
		}
		a.content = cache.New[model.SocialContent](ttl)
		a.analysis = cache.New[model.Event](ttl)
	})
}

func contentKey(platform, url string) string {
	return cache.Fingerprint(platform + ":" + url)
}

// analysisKey scopes cached analyses by model so switching models re-runs
// the extraction instead of serving another model's output.
func analysisKey(url, modelName string) string {
	canonical := "analysis:" + url
	if modelName != "" {
		canonical += ":" + modelName
	}
	return cache.Fingerprint(canonical)
}

// FetchContent returns the full content behind a social or web URL. Cache
// hits come back with Cached=true, the expiry horizon, and any analysis
// already extracted for the URL. A nil content with nil error means no
// adapter could serve the URL.
func (a *Aggregator) FetchContent(ctx context.Context, rawURL string, opts FetchOptions) (*model.SocialContent, error) {
	a.init()
	platform := strings.ToLower(opts.Platform)
	if platform == "" {
		platform = DetectPlatform(rawURL)
	}

	if !opts.ForceRefresh {
		if ent, ok := a.content.GetEntry(contentKey(platform, rawURL)); ok {
			hit := ent.Value
			hit.Cached = true
			if !ent.ExpiresAt.IsZero() {
				exp := ent.ExpiresAt
				hit.CacheExpiresAt = &exp
			}
			if ev, ok := a.CachedAnalysis(rawURL, opts.Model); ok {
				hit.ExtractedEvent = ev
			}
			log.Debug().Str("platform", platform).Str("url", rawURL).Msg("social content cache hit")
			return &hit, nil
		}
	}

	content, err := a.dispatch(ctx, platform, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s content: %w", platform, err)
	}
	if content == nil {
		log.Warn().Str("platform", platform).Str("url", rawURL).Msg("no content retrieved")
		return nil, nil
	}
	a.content.Put(contentKey(platform, rawURL), *content)
	return content, nil
}

func (a *Aggregator) dispatch(ctx context.Context, platform, rawURL string) (*model.SocialContent, error) {
	if a.Scraper != nil && a.UseScraperFor[platform] {
		switch platform {
		case PlatformTwitter:
			return a.Scraper.Tweet(ctx, rawURL)
		case PlatformFacebook:
			return a.Scraper.FacebookPost(ctx, rawURL)
		case PlatformInstagram:
			return a.Scraper.InstagramPost(ctx, rawURL)
		}
	}

	var f Fetcher
	switch platform {
	case PlatformYouTube:
		f = a.YouTube
	case PlatformTwitter:
		f = a.Twitter
	case PlatformFacebook:
		f = a.Facebook
	case PlatformInstagram:
		f = a.Instagram
	case PlatformGoogle:
		f = a.Web
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
	if f == nil {
		return nil, nil
	}
	return f.Fetch(ctx, rawURL)
}

// CachedAnalysis returns the event previously extracted for url, if the
// cache still holds one for the given model.
func (a *Aggregator) CachedAnalysis(url, modelName string) (*model.Event, bool) {
	a.init()
	ev, ok := a.analysis.Get(analysisKey(url, modelName))
	if !ok {
		return nil, false
	}
	return &ev, true
}

// SaveAnalysis caches an extracted event so repeat requests for the same
// URL skip the LLM entirely.
func (a *Aggregator) SaveAnalysis(url string, ev model.Event, modelName string) {
	a.init()
	a.analysis.Put(analysisKey(url, modelName), ev)
}

// Status reports what the caches already hold for a URL.
type Status struct {
	ContentCached  bool `json:"content_cached"`
	AnalysisCached bool `json:"analysis_cached"`
}

// CheckStatus answers whether content and analysis for url are cached,
// without fetching anything.
func (a *Aggregator) CheckStatus(rawURL, platform, modelName string) Status {
	a.init()
	if platform == "" {
		platform = DetectPlatform(rawURL)
	}
	_, content := a.content.Get(contentKey(platform, rawURL))
	_, analysis := a.analysis.Get(analysisKey(rawURL, modelName))
	return Status{ContentCached: content, AnalysisCached: analysis}
}

// CacheStats is the shape served by the cache-stats endpoint.
type CacheStats struct {
	TotalCached          int     `json:"total_cached"`
	ActiveCached         int     `json:"active_cached"`
	Expired              int     `json:"expired"`
	TotalAnalysisCached  int     `json:"total_analysis_cached"`
	ActiveAnalysisCached int     `json:"active_analysis_cached"`
	AnalysisExpired      int     `json:"analysis_expired"`
	CacheDurationHours   float64 `json:"cache_duration_hours"`
}

// Stats snapshots both caches.
func (a *Aggregator) Stats() CacheStats {
	a.init()
	ttl := a.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	live, expired := a.content.Stats()
	aLive, aExpired := a.analysis.Stats()
	return CacheStats{
		TotalCached:          live + expired,
		ActiveCached:         live,
		Expired:              expired,
		TotalAnalysisCached:  aLive + aExpired,
		ActiveAnalysisCached: aLive,
		AnalysisExpired:      aExpired,
		CacheDurationHours:   ttl.Hours(),
	}
}

// ClearCache drops cached content, optionally restricted to one platform,
// and optionally the analysis cache too. It reports how many content
// entries were removed.
func (a *Aggregator) ClearCache(platform string, clearAnalysis bool) int {
	a.init()
	removed := 0
	if platform == "" {
		removed = a.content.Len()
		a.content.Clear()
	} else {
		platform = strings.ToLower(platform)
		for _, k := range a.content.Keys() {
			if v, ok := a.content.Get(k); ok && v.Platform == platform {
				a.content.Delete(k)
				removed++
			}
		}
	}
	if clearAnalysis {
		a.analysis.Clear()
	}
	log.Info().Str("platform", platform).Int("removed", removed).Bool("analysis", clearAnalysis).Msg("social cache cleared")
	return removed
}
