package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/osintscope/eventsearch/internal/extract"
	"github.com/osintscope/eventsearch/internal/fetch"
	"github.com/osintscope/eventsearch/internal/model"
)

// HTML discovers article URLs by fetching a source's rendered search page
// politely (rate limit, robots, rotating user agents all apply) and
// harvesting the links its article_links selector matches.
type HTML struct {
	Fetcher *fetch.Client
	Source  model.SourceConfig
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	tpl := strings.TrimSpace(h.Source.SearchURLTemplate)
	if tpl == "" {
		return nil, fmt.Errorf("discover: source %q has no search_url_template", h.Source.Name)
	}
	if h.Fetcher == nil {
		return nil, fmt.Errorf("discover: source %q has no fetcher", h.Source.Name)
	}

	searchURL := strings.ReplaceAll(tpl, "{query}", url.QueryEscape(query))
	req := fetch.Request{
		URL:           searchURL,
		Method:        h.Source.Method(),
		Headers:       h.Source.Headers,
		RespectRobots: true,
		MinInterval:   h.Source.MinInterval(),
	}
	if req.Method == http.MethodPost && len(h.Source.RequestData) > 0 {
		form := make(map[string]string, len(h.Source.RequestData))
		for k, v := range h.Source.RequestData {
			// Form values carry the raw query; encoding happens at send time.
			form[k] = strings.ReplaceAll(v, "{query}", query)
		}
		req.Form = form
	}

	page, err := h.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("discover: fetch search page: %w", err)
	}
	if strings.TrimSpace(page) == "" {
		return nil, nil
	}

	links := extract.Links(page, searchURL, h.Source.Selectors.ArticleLinks)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}
