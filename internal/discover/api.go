package discover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultAPIEndpoint is the Google Custom Search JSON API.
const DefaultAPIEndpoint = "https://www.googleapis.com/customsearch/v1"

// The upstream returns at most ten results per request regardless of num.
const apiPageSize = 10

// DefaultSkipHosts lists hosts whose result pages are not scrapeable as
// articles and are dropped from API discovery.
var DefaultSkipHosts = []string{
	"youtube.com", "youtu.be", "twitter.com", "x.com",
	"facebook.com", "instagram.com", "tiktok.com",
}

// API discovers article URLs through a paged custom-search JSON endpoint.
// Pagination walks start offsets 1, 11, 21, ... and stops early when the
// upstream signals no further page or returns an empty one.
type API struct {
	HTTPClient *http.Client
	// Endpoint overrides DefaultAPIEndpoint, mainly for tests.
	Endpoint string
	APIKey   string
	EngineID string
	// SkipHosts overrides DefaultSkipHosts. Subdomains of a listed host
	// are skipped too.
	SkipHosts []string
}

func (a *API) Name() string { return "api" }

type apiResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

func (a *API) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(a.APIKey) == "" || strings.TrimSpace(a.EngineID) == "" {
		return nil, errors.New("discover: api key and engine id are required")
	}
	if limit <= 0 {
		limit = DefaultMaxSearchResults
	}

	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	start := 1
	for len(out) < limit {
		page, err := a.fetchPage(ctx, query, start, min(apiPageSize, limit-len(out)))
		if err != nil {
			if len(out) > 0 {
				log.Warn().Err(err).Int("collected", len(out)).
					Msg("api discovery aborted mid-pagination, keeping partial results")
				return out, nil
			}
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		for _, item := range page.Items {
			link := strings.TrimSpace(item.Link)
			if link == "" || a.skip(link) {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
			if len(out) >= limit {
				break
			}
		}
		if len(page.Queries.NextPage) == 0 {
			break
		}
		start += apiPageSize
	}
	return out, nil
}

func (a *API) fetchPage(ctx context.Context, query string, start, num int) (*apiResponse, error) {
	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("discover: parse api endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", a.APIKey)
	q.Set("cx", a.EngineID)
	q.Set("q", query)
	q.Set("start", strconv.Itoa(start))
	q.Set("num", strconv.Itoa(num))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	hc := a.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("discover: api status %d", resp.StatusCode)
	}
	var page apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("discover: decode api response: %w", err)
	}
	return &page, nil
}

func (a *API) skip(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	hosts := a.SkipHosts
	if hosts == nil {
		hosts = DefaultSkipHosts
	}
	for _, s := range hosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
