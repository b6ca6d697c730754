package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

// DefaultTwitterEndpoint is the v2 API base.
const DefaultTwitterEndpoint = "https://api.twitter.com/2"

const (
	twitterMaxAttempts = 3
	twitterBaseBackoff = 15 * time.Second
	// twitterResetBuffer pads the wait past the advertised reset instant.
	twitterResetBuffer = 2 * time.Second
)

var tweetIDPattern = regexp.MustCompile(`status/(\d+)`)

// TweetID extracts the numeric status id from twitter.com, x.com and
// mobile URL forms. Empty when none is present.
func TweetID(rawURL string) string {
	m := tweetIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Twitter fetches tweets through the v2 API with a bearer token. 429
// responses wait for the advertised window reset when it is near, and
// otherwise back off 15/30/60 s across at most three attempts. An empty
// BearerToken disables the adapter.
type Twitter struct {
	BearerToken string
	HTTPClient  *http.Client
	// Endpoint overrides DefaultTwitterEndpoint, mainly for tests.
	Endpoint string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type twTweetResponse struct {
	Data *struct {
		Text          string `json:"text"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount       int `json:"like_count"`
			ReplyCount      int `json:"reply_count"`
			RetweetCount    int `json:"retweet_count"`
			QuoteCount      int `json:"quote_count"`
			ImpressionCount int `json:"impression_count"`
		} `json:"public_metrics"`
		Entities struct {
			Hashtags []struct {
				Tag string `json:"tag"`
			} `json:"hashtags"`
			Mentions []struct {
				Username string `json:"username"`
			} `json:"mentions"`
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
			} `json:"urls"`
		} `json:"entities"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
			Verified        bool   `json:"verified"`
		} `json:"users"`
		Media []struct {
			Type            string `json:"type"`
			URL             string `json:"url"`
			PreviewImageURL string `json:"preview_image_url"`
			Width           int    `json:"width"`
			Height          int    `json:"height"`
			DurationMS      int    `json:"duration_ms"`
		} `json:"media"`
	} `json:"includes"`
}

// Fetch implements Fetcher.
func (t *Twitter) Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	if t.BearerToken == "" {
		log.Warn().Msg("twitter bearer token not configured")
		return nil, nil
	}
	tweetID := TweetID(rawURL)
	if tweetID == "" {
		return nil, fmt.Errorf("no tweet id in url %q", rawURL)
	}

	var body twTweetResponse
	if err := t.getTweet(ctx, tweetID, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		log.Warn().Str("tweet", tweetID).Msg("tweet not found")
		return nil, nil
	}
	tweet := body.Data

	content := &model.SocialContent{
		Platform:    PlatformTwitter,
		ContentType: "tweet",
		URL:         rawURL,
		PlatformID:  tweetID,
		Text:        tweet.Text,
		Engagement: &model.Engagement{
			Likes:    tweet.PublicMetrics.LikeCount,
			Comments: tweet.PublicMetrics.ReplyCount,
			Retweets: tweet.PublicMetrics.RetweetCount,
			Replies:  tweet.PublicMetrics.ReplyCount,
			Views:    tweet.PublicMetrics.ImpressionCount,
		},
	}
	if ts, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
		content.PostedAt = &ts
	}
	if len(body.Includes.Users) > 0 {
		u := body.Includes.Users[0]
		content.Author = &model.SocialAuthor{
			Name:       u.Name,
			Username:   u.Username,
			ProfileURL: "https://twitter.com/" + u.Username,
			Picture:    u.ProfileImageURL,
			Verified:   u.Verified,
		}
	}
	for _, m := range body.Includes.Media {
		switch m.Type {
		case "photo":
			content.Media = append(content.Media, model.MediaItem{
				Type: "image", URL: m.URL, Width: m.Width, Height: m.Height,
			})
		case "video", "animated_gif":
			typ := "video"
			if m.Type == "animated_gif" {
				typ = "gif"
			}
			content.Media = append(content.Media, model.MediaItem{
				Type:      typ,
				URL:       m.URL,
				Thumbnail: m.PreviewImageURL,
				Width:     m.Width,
				Height:    m.Height,
				Duration:  float64(m.DurationMS) / 1000,
			})
		}
	}

	hashtags := make([]string, 0, len(tweet.Entities.Hashtags))
	for _, h := range tweet.Entities.Hashtags {
		hashtags = append(hashtags, h.Tag)
	}
	mentions := make([]string, 0, len(tweet.Entities.Mentions))
	for _, m := range tweet.Entities.Mentions {
		mentions = append(mentions, m.Username)
	}
	urls := make([]string, 0, len(tweet.Entities.URLs))
	for _, u := range tweet.Entities.URLs {
		urls = append(urls, u.ExpandedURL)
	}
	content.PlatformData = map[string]any{
		"tweet_id":    tweetID,
		"hashtags":    hashtags,
		"mentions":    mentions,
		"urls":        urls,
		"quote_count": tweet.PublicMetrics.QuoteCount,
	}
	return content, nil
}

func (t *Twitter) getTweet(ctx context.Context, tweetID string, out *twTweetResponse) error {
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = DefaultTwitterEndpoint
	}
	reqURL := endpoint + "/tweets/" + tweetID +
		"?tweet.fields=created_at,public_metrics,author_id,text,attachments,entities" +
		"&expansions=author_id,attachments.media_keys" +
		"&user.fields=name,username,profile_image_url,verified" +
		"&media.fields=url,preview_image_url,type,width,height,duration_ms"

	hc := t.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	for attempt := 0; attempt < twitterMaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+t.BearerToken)

		resp, err := hc.Do(req)
		if err != nil {
			return fmt.Errorf("twitter api: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := t.backoff(resp.Header, attempt)
			if attempt == twitterMaxAttempts-1 {
				return fmt.Errorf("twitter api: rate limited after %d attempts", twitterMaxAttempts)
			}
			log.Warn().Dur("wait", wait).Int("attempt", attempt+1).Msg("twitter rate limited, backing off")
			if err := t.pause(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return fmt.Errorf("twitter api: authentication failed (status %d)", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return fmt.Errorf("twitter api: status %d", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("twitter api: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("twitter api: rate limited after %d attempts", twitterMaxAttempts)
}

// backoff picks the wait after a 429. When the window reset is at most a
// minute away the wait runs until just past the reset; otherwise it follows
// retry-after or doubles from 15 s.
func (t *Twitter) backoff(h http.Header, attempt int) time.Duration {
	if reset := h.Get("x-rate-limit-reset"); reset != "" {
		if ts, err := strconv.ParseInt(reset, 10, 64); err == nil {
			until := time.Unix(ts, 0).Sub(t.clock()())
			if until > 0 && until <= time.Minute {
				return until + twitterResetBuffer
			}
		}
	}
	if ra := h.Get("retry-after"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return twitterBaseBackoff * (1 << attempt)
}

func (t *Twitter) clock() func() time.Time {
	if t.now != nil {
		return t.now
	}
	return time.Now
}

func (t *Twitter) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if t.sleep != nil {
		return t.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
