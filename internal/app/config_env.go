package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env; cmd mains call this after
// flag parsing so flags stay the highest layer.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&cfg.SourcesPath, "SOURCES_CONFIG_PATH")
	setString(&cfg.DefaultProvider, "DEFAULT_LLM_PROVIDER")
	// CLAUDE_API_KEY matches the deployment convention; ANTHROPIC_API_KEY
	// is what the SDK itself documents. Accept both.
	setString(&cfg.ClaudeAPIKey, "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	setString(&cfg.ClaudeModel, "DEFAULT_CLAUDE_MODEL")
	setString(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.OllamaAPIKey, "OLLAMA_API_KEY")
	setString(&cfg.OllamaModel, "OLLAMA_MODEL")
	setString(&cfg.SearchAPIKey, "GOOGLE_CSE_API_KEY")
	setString(&cfg.SearchEngineID, "GOOGLE_CSE_ID")
	setString(&cfg.YouTubeAPIKey, "YOUTUBE_API_KEY")
	setString(&cfg.TwitterBearerToken, "TWITTER_BEARER_TOKEN")
	setString(&cfg.FacebookAccessToken, "FACEBOOK_ACCESS_TOKEN")
	setString(&cfg.InstagramAccessToken, "INSTAGRAM_ACCESS_TOKEN")
	setString(&cfg.ScrapeCreatorsAPIKey, "SCRAPECREATORS_API_KEY")
	setString(&cfg.TwitterScraper, "TWITTER_SCRAPER")
	setString(&cfg.FacebookScraper, "FACEBOOK_SCRAPER")
	setString(&cfg.InstagramScraper, "INSTAGRAM_SCRAPER")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")

	setInt := func(dst *int, key string) {
		if *dst != 0 {
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
			*dst = n
		}
	}
	setInt(&cfg.MaxConcurrentLLM, "MAX_CONCURRENT_LLM")
	setInt(&cfg.MaxSearchResults, "MAX_SEARCH_RESULTS")
	setInt(&cfg.MaxArticles, "MAX_ARTICLES_TO_PROCESS")

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := parseEnvDuration(os.Getenv(key)); ok {
			*dst = d
		}
	}
	setDuration(&cfg.HTTPTimeout, "SCRAPER_TIMEOUT")
	setDuration(&cfg.ArticleTimeout, "ARTICLE_TIMEOUT")
	setDuration(&cfg.StageBudget, "STAGE_TIMEOUT")
	setDuration(&cfg.SocialCacheTTL, "SOCIAL_CACHE_TTL")
	setDuration(&cfg.SessionTTL, "SESSION_TTL")
	setDuration(&cfg.SessionSweep, "SESSION_SWEEP")

	setFloat := func(dst *float64, key string) {
		if *dst != 0 {
			return
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && f > 0 {
			*dst = f
		}
	}
	setFloat(&cfg.MinRelevance, "MIN_RELEVANCE_SCORE")
	setFloat(&cfg.WeightText, "WEIGHT_TEXT")
	setFloat(&cfg.WeightLocation, "WEIGHT_LOCATION")
	setFloat(&cfg.WeightDate, "WEIGHT_DATE")
	setFloat(&cfg.WeightType, "WEIGHT_EVENT_TYPE")

	// The disable fields stay zero unless env explicitly turns the
	// feature off.
	if !cfg.DisableFallback && envFalsey("ENABLE_LLM_FALLBACK") {
		cfg.DisableFallback = true
	}
	if !cfg.IgnoreRobots && envFalsey("SCRAPER_RESPECT_ROBOTS") {
		cfg.IgnoreRobots = true
	}
	if !cfg.Verbose && envTruthy("VERBOSE") {
		cfg.Verbose = true
	}
}

// parseEnvDuration accepts Go duration strings and, for compatibility with
// older deployments, bare integers meaning seconds.
func parseEnvDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

func envTruthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envFalsey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "0", "false", "no", "off":
		return true
	}
	return false
}
