package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/entities"
	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/fetch"
	"github.com/osintscope/eventsearch/internal/httpapi"
	"github.com/osintscope/eventsearch/internal/llm"
	"github.com/osintscope/eventsearch/internal/match"
	"github.com/osintscope/eventsearch/internal/model"
	"github.com/osintscope/eventsearch/internal/orchestrator"
	"github.com/osintscope/eventsearch/internal/ratelimit"
	"github.com/osintscope/eventsearch/internal/robots"
	"github.com/osintscope/eventsearch/internal/session"
	"github.com/osintscope/eventsearch/internal/social"
	"github.com/osintscope/eventsearch/internal/sources"
)

const (
	defaultListenAddr     = ":8000"
	defaultSessionTTL     = time.Hour
	defaultSocialCacheTTL = 24 * time.Hour
	userAgentToken        = "eventsearch/1.0"
)

// App owns the wired pipeline: source registry, fetcher, LLM router,
// extractor, matcher, session store, social aggregator, orchestrator and
// the HTTP surface over them all.
type App struct {
	cfg Config

	Registry *sources.Registry
	Router   *llm.Router
	Sessions *session.Store
	Searcher *orchestrator.Searcher
	Social   *social.Aggregator
	Events   *events.Extractor
	Server   *httpapi.Server
}

// New validates cfg, loads the source registry and wires every component.
// It fails fast on configuration that cannot work; reachability of the
// configured LLM endpoints is probed best-effort and only logged.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	reg, err := sources.Load(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	log.Info().Int("total", reg.Len()).Int("enabled", len(reg.List(true))).
		Str("path", cfg.SourcesPath).Msg("source registry loaded")

	router, primary, err := buildRouter(cfg)
	if err != nil {
		return nil, err
	}

	matcher, err := match.New(cfg.RelevanceWeights())
	if err != nil {
		return nil, fmt.Errorf("relevance weights: %w", err)
	}

	fetcher := &fetch.Client{
		Limiter: ratelimit.New(),
		Timeout: cfg.HTTPTimeout,
	}
	if !cfg.IgnoreRobots {
		fetcher.Robots = &robots.Gate{UserAgent: userAgentToken}
	}

	var api *discover.API
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		api = &discover.API{
			HTTPClient: newAPIHTTPClient(cfg.HTTPTimeout),
			APIKey:     cfg.SearchAPIKey,
			EngineID:   cfg.SearchEngineID,
		}
	}

	extractor := &events.Extractor{
		Router:          router,
		Entities:        &entities.Extractor{},
		DefaultProvider: primary,
		DefaultModel:    router.DefaultModel(primary),
	}

	st := session.New()

	searcher := &orchestrator.Searcher{
		Sources:  reg,
		Fetcher:  fetcher,
		API:      api,
		Events:   extractor,
		Matcher:  matcher,
		Sessions: st,
		Limits: discover.Limits{
			MaxSearchResults: cfg.MaxSearchResults,
			MaxArticles:      cfg.MaxArticles,
		},
		MinRelevance:   cfg.MinRelevance,
		Workers:        cfg.MaxConcurrentLLM,
		ArticleTimeout: cfg.ArticleTimeout,
		StageBudget:    cfg.StageBudget,
	}

	agg := buildAggregator(cfg, fetcher)

	a := &App{
		cfg:      cfg,
		Registry: reg,
		Router:   router,
		Sessions: st,
		Searcher: searcher,
		Social:   agg,
		Events:   extractor,
		Server: &httpapi.Server{
			Searcher: searcher,
			Sources:  reg,
			Sessions: st,
			LLM:      router,
			Events:   extractor,
			Social:   agg,
			Version:  BuildVersion,
		},
	}

	a.preflight(ctx)
	return a, nil
}

// Close releases nothing today; it exists so callers can defer teardown
// once the app grows resources that need it.
func (a *App) Close() {}

// Search runs one batch query. The CLI calls this directly; the HTTP
// surface goes through the same Searcher.
func (a *App) Search(ctx context.Context, query model.SearchQuery, limits discover.Limits) *model.SearchResponse {
	return a.Searcher.Search(ctx, query, limits)
}

// Serve runs the HTTP surface until ctx is cancelled, with a graceful
// drain. When SessionSweep is configured a janitor ticker ages out sessions
// older than SessionTTL.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	srv := &http.Server{Addr: addr, Handler: a.Server.Handler()}

	if a.cfg.SessionSweep > 0 {
		go a.runJanitor(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (a *App) runJanitor(ctx context.Context) {
	ttl := a.cfg.SessionTTL
	if ttl == 0 {
		ttl = defaultSessionTTL
	}
	ticker := time.NewTicker(a.cfg.SessionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sessions.CleanupOlderThan(ttl); n > 0 {
				log.Info().Int("removed", n).Msg("expired sessions cleaned up")
			}
		}
	}
}

// buildRouter registers the configured providers and returns the router and
// the resolved primary provider name.
func buildRouter(cfg Config) (*llm.Router, string, error) {
	primary := strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	if primary == "" {
		primary = llm.ProviderClaude
		if cfg.ClaudeAPIKey == "" {
			primary = llm.ProviderOllama
		}
	}

	router := llm.NewRouter(primary, !cfg.DisableFallback, int64(cfg.MaxConcurrentLLM), llm.NewLedger(nil))

	if cfg.ClaudeAPIKey != "" {
		claude, err := llm.NewClaude(llm.ClaudeConfig{
			APIKey:       cfg.ClaudeAPIKey,
			DefaultModel: cfg.ClaudeModel,
			HTTPClient:   newAPIHTTPClient(0),
		})
		if err != nil {
			return nil, "", fmt.Errorf("claude provider: %w", err)
		}
		router.Register(claude, claude.DefaultModel())
	}
	if cfg.OllamaBaseURL != "" {
		ollama := llm.NewOllama(llm.OllamaConfig{
			BaseURL:      openAIBase(cfg.OllamaBaseURL),
			APIKey:       cfg.OllamaAPIKey,
			DefaultModel: cfg.OllamaModel,
			HTTPClient:   newAPIHTTPClient(0),
		})
		router.Register(ollama, ollama.DefaultModel())
	}

	if _, ok := router.Provider(primary); !ok {
		return nil, "", fmt.Errorf("default provider %q has no credentials configured", primary)
	}
	return router, primary, nil
}

// openAIBase normalises an Ollama-style root URL to its OpenAI-compatible
// endpoint.
func openAIBase(base string) string {
	b := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(b, "/v1") {
		return b
	}
	return b + "/v1"
}

func buildAggregator(cfg Config, fetcher *fetch.Client) *social.Aggregator {
	client := newAPIHTTPClient(cfg.HTTPTimeout)
	agg := &social.Aggregator{
		YouTube:   &social.YouTube{APIKey: cfg.YouTubeAPIKey, HTTPClient: client},
		Twitter:   &social.Twitter{BearerToken: cfg.TwitterBearerToken, HTTPClient: client},
		Facebook:  &social.Facebook{AccessToken: cfg.FacebookAccessToken, HTTPClient: client},
		Instagram: &social.Instagram{AccessToken: cfg.InstagramAccessToken},
		Web:       &social.WebPage{Fetcher: fetcher},
		TTL:       cfg.SocialCacheTTL,
	}
	if agg.TTL == 0 {
		agg.TTL = defaultSocialCacheTTL
	}
	if cfg.ScrapeCreatorsAPIKey != "" {
		agg.Scraper = &social.ScrapeCreators{APIKey: cfg.ScrapeCreatorsAPIKey, HTTPClient: client}
		agg.UseScraperFor = map[string]bool{
			social.PlatformTwitter:   viaScraper(cfg.TwitterScraper),
			social.PlatformFacebook:  viaScraper(cfg.FacebookScraper),
			social.PlatformInstagram: viaScraper(cfg.InstagramScraper),
		}
	}
	return agg
}

func viaScraper(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "scrapecreators")
}

// preflight probes each configured provider's model listing so broken
// endpoints show up in the log at startup instead of on the first search.
func (a *App) preflight(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, name := range a.Router.Providers() {
		p, ok := a.Router.Provider(name)
		if !ok {
			continue
		}
		lister, ok := p.(llm.ModelLister)
		if !ok {
			continue
		}
		models, err := lister.Models(ctx)
		if err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("model list failed; continuing")
			continue
		}
		log.Info().Str("provider", name).Int("count", len(models)).Msg("llm models available")
	}
}
