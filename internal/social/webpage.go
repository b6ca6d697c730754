package social

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/extract"
	"github.com/osintscope/eventsearch/internal/fetch"
	"github.com/osintscope/eventsearch/internal/model"
)

// WebPage serves the catch-all path: URLs that belong to no social platform
// are fetched like articles and run through the generic extractor. Robots
// are not consulted on this path; the URLs come straight from search results
// the operator asked for.
type WebPage struct {
	Fetcher *fetch.Client
	// MinInterval paces same-host requests. Zero means 1 s.
	MinInterval time.Duration
}

// Fetch implements Fetcher.
func (w *WebPage) Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	if w.Fetcher == nil {
		return nil, nil
	}
	interval := w.MinInterval
	if interval == 0 {
		interval = time.Second
	}
	htmlText, err := w.Fetcher.Fetch(ctx, fetch.Request{URL: rawURL, MinInterval: interval})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if htmlText == "" {
		log.Warn().Str("url", rawURL).Msg("page fetch returned no text")
		return nil, nil
	}

	doc := extract.FromHTML(htmlText, model.Selectors{})
	if doc.Content == "" {
		log.Warn().Str("url", rawURL).Msg("no readable content extracted from page")
		return nil, nil
	}

	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	desc := doc.Content
	if runes := []rune(desc); len(runes) > 500 {
		desc = string(runes[:500])
	}
	content := &model.SocialContent{
		Platform:    PlatformGoogle,
		ContentType: "web_page",
		URL:         rawURL,
		PlatformID:  rawURL,
		Text:        doc.Content,
		Title:       title,
		Description: desc,
	}
	if doc.Author != "" {
		content.Author = &model.SocialAuthor{Name: doc.Author}
	}
	if doc.Date != "" {
		if ts, err := time.Parse(time.RFC3339, doc.Date); err == nil {
			content.PostedAt = &ts
		}
	}
	return content, nil
}
