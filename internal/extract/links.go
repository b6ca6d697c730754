package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links harvests candidate article URLs from a page. The selector scopes the
// search (empty means every anchor); matched elements that are not anchors
// contribute their first descendant anchor. Search-engine redirect wrappers
// are unwrapped to their real targets, relative links are resolved against
// pageURL, and only absolute http(s) results are kept, in document order
// without duplicates. Nothing is fetched.
func Links(htmlText, pageURL, selector string) []string {
	doc := parse(htmlText)
	if doc == nil {
		return nil
	}
	if strings.TrimSpace(selector) == "" {
		selector = "a[href]"
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			href, ok = s.Find("a[href]").First().Attr("href")
		}
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		target := unwrapRedirect(href)
		resolved := absolutize(base, target)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	})
	return out
}

// unwrapRedirect recovers the destination from Google's /url?q= and
// DuckDuckGo's /l/?uddg= result wrappers. Anything else passes through.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case u.Path == "/url" && (host == "" || strings.Contains(host, "google")):
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	case strings.Contains(host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/"):
		if t := u.Query().Get("uddg"); t != "" {
			return t
		}
	}
	return href
}

// absolutize resolves href against base and returns it only when the result
// is an absolute http(s) URL.
func absolutize(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	if ref.Host == "" {
		return ""
	}
	return ref.String()
}
