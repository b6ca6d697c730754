package app

import (
	"time"

	"github.com/osintscope/eventsearch/internal/match"
)

// Config holds runtime configuration for the event search pipeline and its
// binaries. Values are layered flags > environment > optional config file;
// fields left zero fall back to the defaults noted per field at wiring time.
type Config struct {
	// SourcesPath locates the source registry YAML.
	SourcesPath string

	// DefaultProvider is claude or ollama. DisableFallback turns off the
	// one retry against the other configured provider.
	DefaultProvider string
	DisableFallback bool
	// MaxConcurrentLLM bounds in-flight LLM calls and batch extraction
	// workers. Zero means 4.
	MaxConcurrentLLM int

	// Claude credentials. An empty key leaves the provider unregistered.
	ClaudeAPIKey string
	ClaudeModel  string

	// Ollama endpoint, or any OpenAI-compatible server. An empty base URL
	// leaves the provider unregistered.
	OllamaBaseURL string
	OllamaAPIKey  string
	OllamaModel   string

	// Custom-search credentials for api_based sources. Empty disables API
	// discovery; such sources are skipped.
	SearchAPIKey   string
	SearchEngineID string

	// Global scraping caps. Per-source and per-request values override.
	MaxSearchResults int
	MaxArticles      int

	// HTTPTimeout bounds one page fetch. Zero means 30 s.
	HTTPTimeout time.Duration
	// ArticleTimeout bounds one batch extraction. Zero means 60 s.
	ArticleTimeout time.Duration
	// StageBudget bounds the whole batch extraction stage. Zero means 300 s.
	StageBudget time.Duration
	// IgnoreRobots skips the robots.txt gate on article fetches.
	IgnoreRobots bool

	// Relevance scoring. When any weight is set all four must sum to 1.0;
	// all-zero means the standard split.
	MinRelevance   float64
	WeightText     float64
	WeightLocation float64
	WeightDate     float64
	WeightType     float64

	// Social adapter credentials. An absent credential disables that
	// adapter. The *Scraper fields pick native or scrapecreators per
	// platform; scrapecreators requires ScrapeCreatorsAPIKey.
	YouTubeAPIKey        string
	TwitterBearerToken   string
	FacebookAccessToken  string
	InstagramAccessToken string
	ScrapeCreatorsAPIKey string
	TwitterScraper       string
	FacebookScraper      string
	InstagramScraper     string
	// SocialCacheTTL bounds cached social content and analyses. Zero
	// means 24 h.
	SocialCacheTTL time.Duration

	// SessionTTL ages out finished sessions; SessionSweep is the janitor
	// interval. A zero sweep disables the janitor.
	SessionTTL   time.Duration
	SessionSweep time.Duration

	// ListenAddr is the bind address for the server binary. Empty means
	// :8000.
	ListenAddr string

	Verbose bool
}

// RelevanceWeights maps the configured weights to the matcher's shape,
// falling back to the standard split when none is set.
func (c Config) RelevanceWeights() match.Weights {
	if c.WeightText == 0 && c.WeightLocation == 0 && c.WeightDate == 0 && c.WeightType == 0 {
		return match.DefaultWeights
	}
	return match.Weights{
		Text:     c.WeightText,
		Location: c.WeightLocation,
		Date:     c.WeightDate,
		Type:     c.WeightType,
	}
}
