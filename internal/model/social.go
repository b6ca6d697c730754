package model

import "time"

// SocialAuthor identifies who posted a piece of social content.
type SocialAuthor struct {
	Name       string `json:"name,omitempty"`
	Username   string `json:"username,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Picture    string `json:"picture,omitempty"`
	Verified   bool   `json:"verified,omitempty"`
}

// MediaItem is one attachment on a social post.
type MediaItem struct {
	Type      string  `json:"type"` // image, video or gif
	URL       string  `json:"url"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// Engagement aggregates interaction counts. Platforms populate the subset
// they report; absent metrics stay zero.
type Engagement struct {
	Likes    int `json:"likes,omitempty"`
	Comments int `json:"comments,omitempty"`
	Shares   int `json:"shares,omitempty"`
	Views    int `json:"views,omitempty"`
	Retweets int `json:"retweets,omitempty"`
	Replies  int `json:"replies,omitempty"`
}

// SocialContent is the common record every platform adapter returns. The
// aggregator caches these and may attach a previously extracted event.
type SocialContent struct {
	Platform    string `json:"platform"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	PlatformID  string `json:"platform_id"`

	Text        string `json:"text,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Author   *SocialAuthor `json:"author,omitempty"`
	PostedAt *time.Time    `json:"posted_at,omitempty"`

	Media      []MediaItem `json:"media,omitempty"`
	Engagement *Engagement `json:"engagement,omitempty"`

	// PlatformData carries adapter-specific extras the core does not
	// interpret.
	PlatformData map[string]any `json:"platform_data,omitempty"`

	ExtractedEvent *Event     `json:"extracted_event,omitempty"`
	Cached         bool       `json:"cached"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
}

// BodyText returns the best available text for downstream extraction:
// the post text, falling back to the description.
func (c *SocialContent) BodyText() string {
	if c == nil {
		return ""
	}
	if c.Text != "" {
		return c.Text
	}
	return c.Description
}
