package social

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

var igShortcodePattern = regexp.MustCompile(`instagram\.com/(?:p|reel)/([A-Za-z0-9_-]+)`)

// InstagramShortcode extracts the post or reel shortcode from a URL.
func InstagramShortcode(rawURL string) string {
	m := igShortcodePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Instagram is the native Graph API adapter. The Graph API only serves
// media owned by a Business account linked to a Facebook page, and it keys
// on media ids that public shortcodes cannot be converted to without that
// account, so the native path reports no content. Route instagram through
// the third-party scraper for public posts.
type Instagram struct {
	AccessToken string
}

// Fetch implements Fetcher.
func (i *Instagram) Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	if i.AccessToken == "" {
		log.Warn().Msg("instagram access token not configured")
		return nil, nil
	}
	shortcode := InstagramShortcode(rawURL)
	if shortcode == "" {
		log.Warn().Str("url", rawURL).Msg("no instagram shortcode in url")
		return nil, nil
	}
	log.Warn().Str("shortcode", shortcode).
		Msg("instagram graph api needs a business account media id; shortcodes cannot be queried directly")
	return nil, nil
}
