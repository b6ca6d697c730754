package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/osintscope/eventsearch/internal/llm"
)

// FileConfig is the optional single-file configuration schema. Durations are
// strings ("30s", "24h") or bare integers meaning seconds.
type FileConfig struct {
	Sources string `yaml:"sources" json:"sources"`
	Listen  string `yaml:"listen" json:"listen"`

	LLM struct {
		Provider      string `yaml:"provider" json:"provider"`
		Fallback      *bool  `yaml:"fallback" json:"fallback"`
		MaxConcurrent int    `yaml:"maxConcurrent" json:"maxConcurrent"`
		Claude        struct {
			Key   string `yaml:"key" json:"key"`
			Model string `yaml:"model" json:"model"`
		} `yaml:"claude" json:"claude"`
		Ollama struct {
			Base  string `yaml:"base" json:"base"`
			Key   string `yaml:"key" json:"key"`
			Model string `yaml:"model" json:"model"`
		} `yaml:"ollama" json:"ollama"`
	} `yaml:"llm" json:"llm"`

	Search struct {
		APIKey   string `yaml:"apiKey" json:"apiKey"`
		EngineID string `yaml:"engineId" json:"engineId"`
	} `yaml:"search" json:"search"`

	Limits struct {
		SearchResults int `yaml:"searchResults" json:"searchResults"`
		Articles      int `yaml:"articles" json:"articles"`
	} `yaml:"limits" json:"limits"`

	Timeouts struct {
		HTTP    string `yaml:"http" json:"http"`
		Article string `yaml:"article" json:"article"`
		Stage   string `yaml:"stage" json:"stage"`
	} `yaml:"timeouts" json:"timeouts"`

	Robots *bool `yaml:"robots" json:"robots"`

	Relevance struct {
		Min      float64 `yaml:"min" json:"min"`
		Text     float64 `yaml:"text" json:"text"`
		Location float64 `yaml:"location" json:"location"`
		Date     float64 `yaml:"date" json:"date"`
		Type     float64 `yaml:"type" json:"type"`
	} `yaml:"relevance" json:"relevance"`

	Social struct {
		YouTubeKey        string `yaml:"youtubeKey" json:"youtubeKey"`
		TwitterToken      string `yaml:"twitterToken" json:"twitterToken"`
		FacebookToken     string `yaml:"facebookToken" json:"facebookToken"`
		InstagramToken    string `yaml:"instagramToken" json:"instagramToken"`
		ScrapeCreatorsKey string `yaml:"scrapecreatorsKey" json:"scrapecreatorsKey"`
		TwitterScraper    string `yaml:"twitterScraper" json:"twitterScraper"`
		FacebookScraper   string `yaml:"facebookScraper" json:"facebookScraper"`
		InstagramScraper  string `yaml:"instagramScraper" json:"instagramScraper"`
		CacheTTL          string `yaml:"cacheTTL" json:"cacheTTL"`
	} `yaml:"social" json:"social"`

	Sessions struct {
		TTL   string `yaml:"ttl" json:"ttl"`
		Sweep string `yaml:"sweep" json:"sweep"`
	} `yaml:"sessions" json:"sessions"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for fields still unset.
// Flags and env should already have been applied; the file is the lowest
// layer.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	setString(&cfg.SourcesPath, fc.Sources)
	setString(&cfg.ListenAddr, fc.Listen)
	setString(&cfg.DefaultProvider, fc.LLM.Provider)
	setString(&cfg.ClaudeAPIKey, fc.LLM.Claude.Key)
	setString(&cfg.ClaudeModel, fc.LLM.Claude.Model)
	setString(&cfg.OllamaBaseURL, fc.LLM.Ollama.Base)
	setString(&cfg.OllamaAPIKey, fc.LLM.Ollama.Key)
	setString(&cfg.OllamaModel, fc.LLM.Ollama.Model)
	setString(&cfg.SearchAPIKey, fc.Search.APIKey)
	setString(&cfg.SearchEngineID, fc.Search.EngineID)
	setString(&cfg.YouTubeAPIKey, fc.Social.YouTubeKey)
	setString(&cfg.TwitterBearerToken, fc.Social.TwitterToken)
	setString(&cfg.FacebookAccessToken, fc.Social.FacebookToken)
	setString(&cfg.InstagramAccessToken, fc.Social.InstagramToken)
	setString(&cfg.ScrapeCreatorsAPIKey, fc.Social.ScrapeCreatorsKey)
	setString(&cfg.TwitterScraper, fc.Social.TwitterScraper)
	setString(&cfg.FacebookScraper, fc.Social.FacebookScraper)
	setString(&cfg.InstagramScraper, fc.Social.InstagramScraper)

	if cfg.MaxConcurrentLLM == 0 && fc.LLM.MaxConcurrent > 0 {
		cfg.MaxConcurrentLLM = fc.LLM.MaxConcurrent
	}
	if cfg.MaxSearchResults == 0 && fc.Limits.SearchResults > 0 {
		cfg.MaxSearchResults = fc.Limits.SearchResults
	}
	if cfg.MaxArticles == 0 && fc.Limits.Articles > 0 {
		cfg.MaxArticles = fc.Limits.Articles
	}

	if cfg.HTTPTimeout == 0 {
		if d, ok := parseEnvDuration(fc.Timeouts.HTTP); ok {
			cfg.HTTPTimeout = d
		}
	}
	if cfg.ArticleTimeout == 0 {
		if d, ok := parseEnvDuration(fc.Timeouts.Article); ok {
			cfg.ArticleTimeout = d
		}
	}
	if cfg.StageBudget == 0 {
		if d, ok := parseEnvDuration(fc.Timeouts.Stage); ok {
			cfg.StageBudget = d
		}
	}
	if cfg.SocialCacheTTL == 0 {
		if d, ok := parseEnvDuration(fc.Social.CacheTTL); ok {
			cfg.SocialCacheTTL = d
		}
	}
	if cfg.SessionTTL == 0 {
		if d, ok := parseEnvDuration(fc.Sessions.TTL); ok {
			cfg.SessionTTL = d
		}
	}
	if cfg.SessionSweep == 0 {
		if d, ok := parseEnvDuration(fc.Sessions.Sweep); ok {
			cfg.SessionSweep = d
		}
	}

	if cfg.MinRelevance == 0 && fc.Relevance.Min > 0 {
		cfg.MinRelevance = fc.Relevance.Min
	}
	weightsUnset := cfg.WeightText == 0 && cfg.WeightLocation == 0 &&
		cfg.WeightDate == 0 && cfg.WeightType == 0
	if weightsUnset && (fc.Relevance.Text > 0 || fc.Relevance.Location > 0 ||
		fc.Relevance.Date > 0 || fc.Relevance.Type > 0) {
		cfg.WeightText = fc.Relevance.Text
		cfg.WeightLocation = fc.Relevance.Location
		cfg.WeightDate = fc.Relevance.Date
		cfg.WeightType = fc.Relevance.Type
	}

	if !cfg.DisableFallback && fc.LLM.Fallback != nil && !*fc.LLM.Fallback {
		cfg.DisableFallback = true
	}
	if !cfg.IgnoreRobots && fc.Robots != nil && !*fc.Robots {
		cfg.IgnoreRobots = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks cross-field invariants so misconfiguration fails at
// startup instead of mid-pipeline.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.SourcesPath) == "" {
		return errors.New("config: sources path is required (or set SOURCES_CONFIG_PATH)")
	}
	switch p := strings.ToLower(strings.TrimSpace(cfg.DefaultProvider)); p {
	case "", llm.ProviderClaude, llm.ProviderOllama:
	default:
		return fmt.Errorf("config: unknown llm provider %q (want claude or ollama)", cfg.DefaultProvider)
	}
	if cfg.ClaudeAPIKey == "" && cfg.OllamaBaseURL == "" {
		return errors.New("config: no llm provider configured (set CLAUDE_API_KEY or OLLAMA_BASE_URL)")
	}

	if cfg.MaxConcurrentLLM < 0 || cfg.MaxSearchResults < 0 || cfg.MaxArticles < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.MinRelevance < 0 || cfg.MinRelevance > 1 {
		return fmt.Errorf("config: min relevance %v out of range [0,1]", cfg.MinRelevance)
	}

	weightsSet := cfg.WeightText != 0 || cfg.WeightLocation != 0 ||
		cfg.WeightDate != 0 || cfg.WeightType != 0
	if weightsSet {
		sum := cfg.WeightText + cfg.WeightLocation + cfg.WeightDate + cfg.WeightType
		if math.Abs(sum-1.0) > 1e-9 {
			return fmt.Errorf("config: relevance weights sum to %v, want 1.0", sum)
		}
	}

	for _, sel := range []struct{ name, value string }{
		{"twitter", cfg.TwitterScraper},
		{"facebook", cfg.FacebookScraper},
		{"instagram", cfg.InstagramScraper},
	} {
		switch strings.ToLower(strings.TrimSpace(sel.value)) {
		case "", "native":
		case "scrapecreators":
			if cfg.ScrapeCreatorsAPIKey == "" {
				return fmt.Errorf("config: %s routed through scrapecreators but SCRAPECREATORS_API_KEY is not set", sel.name)
			}
		default:
			return fmt.Errorf("config: %s scraper %q (want NATIVE or SCRAPECREATORS)", sel.name, sel.value)
		}
	}
	return nil
}
