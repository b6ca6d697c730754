// Package fetch issues polite HTTP requests on behalf of the pipeline:
// rate-limited per domain, robots-aware, user-agent rotated, and robust
// against mislabelled legacy encodings.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/ratelimit"
	"github.com/osintscope/eventsearch/internal/robots"
)

// ErrRobotsDisallowed marks URLs the robots gate refused. Callers skip these
// silently.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// defaultUserAgents is the rotation pool. All entries are plausible desktop
// browsers; search backends serve degraded or blocked pages to obvious bots.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Request describes one fetch. Method defaults to GET; Form is sent
// url-encoded on POST. MinInterval is the source's politeness interval,
// raised to the host's crawl-delay when robots advertises a longer one.
type Request struct {
	URL           string
	Method        string
	Headers       map[string]string
	Form          map[string]string
	RespectRobots bool
	MinInterval   time.Duration
}

// Client performs polite fetches. Exported fields configure it; the zero
// value works with package defaults.
type Client struct {
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
	Robots     *robots.Gate
	// UserAgents overrides the default rotation pool.
	UserAgents []string
	// Timeout bounds each request. Zero means 30 s.
	Timeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxBodyBytes caps the response read. Zero means 10 MiB.
	MaxBodyBytes int64
	// JitterMin/JitterMax bound the post-limiter pacing blur.
	// Zero values mean 100 ms and 500 ms.
	JitterMin, JitterMax time.Duration

	uaCounter atomic.Uint64
	sleep     func(ctx context.Context, d time.Duration) error
}

// Fetch retrieves req.URL and returns the decoded page text. Non-textual
// responses and undecodable bodies return an empty string with a nil error;
// robots refusals return ErrRobotsDisallowed. There is exactly one attempt
// per call; retrying is the caller's decision.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return "", fmt.Errorf("unsupported URL scheme: %q", req.URL)
	}

	minInterval := req.MinInterval
	if req.RespectRobots && c.Robots != nil {
		allowed, crawlDelay, err := c.Robots.CanFetch(ctx, req.URL)
		if err != nil {
			return "", fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return "", fmt.Errorf("%s: %w", req.URL, ErrRobotsDisallowed)
		}
		if crawlDelay > minInterval {
			minInterval = crawlDelay
		}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Acquire(ctx, u.Hostname(), minInterval); err != nil {
			return "", err
		}
		if err := c.pause(ctx, ratelimit.Jitter(c.jitterMin(), c.jitterMax())); err != nil {
			return "", err
		}
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextualContentType(contentType) {
		log.Debug().Str("url", req.URL).Str("content_type", contentType).Msg("skipping non-textual response")
		return "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody()))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return decodeBody(raw, contentType, req.URL), nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost && len(req.Form) > 0 {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	ua := c.nextUserAgent()
	switch method {
	case http.MethodPost:
		// One search backend rejects POSTs carrying browser-looking header
		// sets; a bare User-Agent passes.
		httpReq.Header.Set("User-Agent", ua)
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}
		httpReq.Header.Set("User-Agent", ua)
		if httpReq.Header.Get("Referer") == "" {
			httpReq.Header.Set("Referer", "https://www.google.com/")
		}
	}
	return httpReq, nil
}

// nextUserAgent rotates the pool round-robin.
func (c *Client) nextUserAgent() string {
	pool := c.UserAgents
	if len(pool) == 0 {
		pool = defaultUserAgents
	}
	n := c.uaCounter.Add(1) - 1
	return pool[n%uint64(len(pool))]
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		if base.Timeout == 0 {
			base.Timeout = c.timeout()
		}
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.timeout(), CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

func (c *Client) maxBody() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return 10 << 20
}

func (c *Client) jitterMin() time.Duration {
	if c.JitterMin > 0 {
		return c.JitterMin
	}
	return 100 * time.Millisecond
}

func (c *Client) jitterMax() time.Duration {
	if c.JitterMax > 0 {
		return c.JitterMax
	}
	return 500 * time.Millisecond
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isTextualContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		// Some search backends omit the header; attempt decoding anyway.
		return true
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	switch ct {
	case "application/json", "application/xml", "application/xhtml+xml":
		return true
	}
	return strings.HasSuffix(ct, "+xml") || strings.HasSuffix(ct, "+json")
}
