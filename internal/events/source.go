package events

import (
	"net/url"
	"strings"
	"unicode"
)

// wellKnownSources maps host substrings to display names, checked in order.
var wellKnownSources = []struct{ key, name string }{
	{"bbc", "BBC News"},
	{"reuters", "Reuters"},
	{"cnn", "CNN"},
	{"aljazeera", "Al Jazeera"},
	{"wikipedia", "Wikipedia"},
	{"cbsnews", "CBS News"},
	{"npr", "NPR"},
	{"nypost", "New York Post"},
	{"apnews", "Associated Press"},
	{"alarabiya", "Al Arabiya"},
	{"indiatvnews", "India TV News"},
	{"thenationalnews", "The National News"},
}

// SourceNameFromURL derives a readable source name from an article URL:
// well-known outlets by host substring, otherwise the first host label
// title-cased.
func SourceNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	for _, s := range wellKnownSources {
		if strings.Contains(host, s.key) {
			return s.name
		}
	}
	label, _, _ := strings.Cut(strings.TrimPrefix(host, "www."), ".")
	return titleCase(label)
}

func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}
