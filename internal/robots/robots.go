// Package robots answers "may I fetch this URL?" from cached robots.txt
// rules, one entry per host.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// Gate caches parsed robots.txt per host and evaluates fetch permission plus
// the host's advertised crawl delay. Failures to fetch or parse a robots
// file cache a permissive result so one broken endpoint cannot stall the
// scraper.
type Gate struct {
	HTTPClient *http.Client
	// UserAgent is the product token matched against robots groups.
	// Empty means the wildcard group.
	UserAgent string
	// TTL bounds how long a parsed robots file is reused. Zero means 1 h.
	TTL time.Duration

	mu    sync.Mutex
	hosts map[string]entry
	now   func() time.Time
}

type entry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// CanFetch reports whether rawURL may be fetched and any crawl delay the
// host requests. Unparseable URLs are reported as an error; robots lookup
// failures are treated as allowed.
func (g *Gate) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, 0, fmt.Errorf("unsupported url scheme: %q", rawURL)
	}

	grp := g.groupFor(ctx, scheme, u.Host)
	if grp == nil {
		return true, 0, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return grp.Test(path), grp.CrawlDelay, nil
}

func (g *Gate) groupFor(ctx context.Context, scheme, host string) *robotstxt.Group {
	key := scheme + "://" + host

	g.mu.Lock()
	if g.hosts == nil {
		g.hosts = make(map[string]entry)
	}
	if ent, ok := g.hosts[key]; ok && g.clock()().Sub(ent.fetchedAt) < g.ttl() {
		grp := ent.group
		g.mu.Unlock()
		return grp
	}
	g.mu.Unlock()

	grp := g.fetchGroup(ctx, key+"/robots.txt")

	g.mu.Lock()
	g.hosts[key] = entry{group: grp, fetchedAt: g.clock()()}
	g.mu.Unlock()
	return grp
}

// fetchGroup retrieves and parses robots.txt. Any failure yields the
// permissive group.
func (g *Gate) fetchGroup(ctx context.Context, robotsURL string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return permissiveGroup(g.agent())
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots fetch failed, assuming allowed")
		return permissiveGroup(g.agent())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return permissiveGroup(g.agent())
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return permissiveGroup(g.agent())
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots parse failed, assuming allowed")
		return permissiveGroup(g.agent())
	}
	return data.FindGroup(g.agent())
}

func (g *Gate) agent() string {
	if g.UserAgent == "" {
		return "*"
	}
	return g.UserAgent
}

func (g *Gate) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return time.Hour
}

func (g *Gate) clock() func() time.Time {
	if g.now != nil {
		return g.now
	}
	return time.Now
}

func permissiveGroup(agent string) *robotstxt.Group {
	data, _ := robotstxt.FromBytes([]byte("User-agent: *\nAllow: /\n"))
	return data.FindGroup(agent)
}
