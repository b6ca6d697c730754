package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/osintscope/eventsearch/internal/model"
)

// DefaultScrapeCreatorsEndpoint is the hosted scraping API base.
const DefaultScrapeCreatorsEndpoint = "https://api.scrapecreators.com"

// ScrapeCreators fetches public posts through a hosted scraping API,
// bypassing the platforms' own credential requirements. The per-platform
// formatters reshape its responses into the common SocialContent record.
type ScrapeCreators struct {
	APIKey     string
	HTTPClient *http.Client
	// Endpoint overrides DefaultScrapeCreatorsEndpoint, mainly for tests.
	Endpoint string
}

func (s *ScrapeCreators) get(ctx context.Context, path, rawURL string) ([]byte, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("scrapecreators: api key not configured")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultScrapeCreatorsEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(endpoint, "/")+path+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", s.APIKey)

	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrapecreators: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("scrapecreators: invalid api key")
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, fmt.Errorf("scrapecreators: insufficient credits")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("scrapecreators: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrapecreators: read response: %w", err)
	}
	return body, nil
}

type scEntities struct {
	Media []scMedia `json:"media"`
}

type scMedia struct {
	Type          string `json:"type"`
	MediaURL      string `json:"media_url"`
	MediaURLHTTPS string `json:"media_url_https"`
	VideoInfo     struct {
		Variants []struct {
			ContentType string `json:"content_type"`
			Bitrate     int    `json:"bitrate"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

type scTweet struct {
	RestID string `json:"rest_id"`
	Views  struct {
		Count string `json:"count"`
	} `json:"views"`
	Core struct {
		UserResults struct {
			Result struct {
				IsBlueVerified bool `json:"is_blue_verified"`
				Avatar         struct {
					ImageURL string `json:"image_url"`
				} `json:"avatar"`
				Core struct {
					Name       string `json:"name"`
					ScreenName string `json:"screen_name"`
				} `json:"core"`
				Legacy struct {
					ProfileImageURL string `json:"profile_image_url_https"`
					Verified        bool   `json:"verified"`
					FollowersCount  int    `json:"followers_count"`
				} `json:"legacy"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy struct {
		FullText         string     `json:"full_text"`
		CreatedAt        string     `json:"created_at"`
		IDStr            string     `json:"id_str"`
		FavoriteCount    int        `json:"favorite_count"`
		RetweetCount     int        `json:"retweet_count"`
		ReplyCount       int        `json:"reply_count"`
		QuoteCount       int        `json:"quote_count"`
		Entities         scEntities `json:"entities"`
		ExtendedEntities scEntities `json:"extended_entities"`
	} `json:"legacy"`
}

// Tweet fetches a tweet. The upstream sometimes nests the payload under a
// "data" key and sometimes serves it flat, so both shapes decode.
func (s *ScrapeCreators) Tweet(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	body, err := s.get(ctx, "/v1/twitter/tweet", rawURL)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	payload := body
	if err := json.Unmarshal(body, &envelope); err == nil &&
		len(envelope.Data) > 0 && bytes.HasPrefix(bytes.TrimSpace(envelope.Data), []byte("{")) {
		payload = envelope.Data
	}
	var tw scTweet
	if err := json.Unmarshal(payload, &tw); err != nil {
		return nil, fmt.Errorf("scrapecreators: decode tweet: %w", err)
	}

	mediaList := tw.Legacy.ExtendedEntities.Media
	if len(mediaList) == 0 {
		mediaList = tw.Legacy.Entities.Media
	}
	var media []model.MediaItem
	hasVideo := false
	for _, m := range mediaList {
		switch m.Type {
		case "photo":
			u := m.MediaURLHTTPS
			if u == "" {
				u = m.MediaURL
			}
			media = append(media, model.MediaItem{Type: "image", URL: u})
		case "video", "animated_gif":
			// Highest-bitrate mp4 variant wins.
			best := ""
			bestRate := -1
			for _, v := range m.VideoInfo.Variants {
				if v.ContentType == "video/mp4" && v.Bitrate > bestRate {
					best, bestRate = v.URL, v.Bitrate
				}
			}
			if best != "" {
				hasVideo = true
				media = append(media, model.MediaItem{
					Type: "video", URL: best, Thumbnail: m.MediaURLHTTPS,
				})
			}
		}
	}

	views, _ := strconv.Atoi(tw.Views.Count)
	user := tw.Core.UserResults.Result
	picture := user.Avatar.ImageURL
	if picture == "" {
		picture = user.Legacy.ProfileImageURL
	}

	tweetID := tw.RestID
	if tweetID == "" {
		tweetID = tw.Legacy.IDStr
	}
	contentType := "text"
	if hasVideo {
		contentType = "video"
	}

	content := &model.SocialContent{
		Platform:    PlatformTwitter,
		ContentType: contentType,
		URL:         rawURL,
		PlatformID:  tweetID,
		Text:        tw.Legacy.FullText,
		Author: &model.SocialAuthor{
			Name:       user.Core.Name,
			Username:   user.Core.ScreenName,
			ProfileURL: "https://twitter.com/" + user.Core.ScreenName,
			Picture:    picture,
			Verified:   user.Legacy.Verified || user.IsBlueVerified,
		},
		Media: media,
		Engagement: &model.Engagement{
			Likes:    tw.Legacy.FavoriteCount,
			Retweets: tw.Legacy.RetweetCount,
			Replies:  tw.Legacy.ReplyCount,
			Comments: tw.Legacy.ReplyCount,
			Views:    views,
		},
		PlatformData: map[string]any{
			"tweet_id":    tweetID,
			"quote_count": tw.Legacy.QuoteCount,
			"followers":   user.Legacy.FollowersCount,
			"scraper":     "scrapecreators",
		},
	}
	// Legacy timestamps use the classic Twitter format.
	if ts, err := time.Parse(time.RubyDate, tw.Legacy.CreatedAt); err == nil {
		content.PostedAt = &ts
	}
	return content, nil
}

type scFacebookPost struct {
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	PostID       string `json:"post_id"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	ShareCount   int    `json:"share_count"`
	ViewCount    int    `json:"view_count"`
	Video        struct {
		HDURL          string  `json:"hd_url"`
		SDURL          string  `json:"sd_url"`
		Thumbnail      string  `json:"thumbnail"`
		LengthInSecond float64 `json:"length_in_second"`
	} `json:"video"`
	Author struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		URL        string `json:"url"`
		Image      string `json:"image"`
		IsVerified bool   `json:"is_verified"`
	} `json:"author"`
}

// FacebookPost fetches a facebook post.
func (s *ScrapeCreators) FacebookPost(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	body, err := s.get(ctx, "/v1/facebook/post", rawURL)
	if err != nil {
		return nil, err
	}
	var post scFacebookPost
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("scrapecreators: decode facebook post: %w", err)
	}

	videoURL := post.Video.HDURL
	if videoURL == "" {
		videoURL = post.Video.SDURL
	}
	var media []model.MediaItem
	contentType := "text"
	switch {
	case videoURL != "":
		contentType = "video"
		media = append(media, model.MediaItem{
			Type:      "video",
			URL:       videoURL,
			Thumbnail: post.Video.Thumbnail,
			Duration:  post.Video.LengthInSecond,
		})
	case post.ImageURL != "":
		contentType = "image"
		media = append(media, model.MediaItem{Type: "image", URL: post.ImageURL})
	}

	authorURL := post.Author.URL
	if authorURL == "" && post.Author.ID != "" {
		authorURL = "https://www.facebook.com/" + post.Author.ID
	}
	username := ""
	if authorURL != "" {
		parts := strings.Split(strings.TrimRight(authorURL, "/"), "/")
		username = parts[len(parts)-1]
	} else {
		username = strings.ToLower(strings.ReplaceAll(post.Author.Name, " ", ""))
	}

	return &model.SocialContent{
		Platform:    PlatformFacebook,
		ContentType: contentType,
		URL:         rawURL,
		PlatformID:  post.PostID,
		Text:        post.Description,
		Author: &model.SocialAuthor{
			Name:       post.Author.Name,
			Username:   username,
			ProfileURL: authorURL,
			Picture:    post.Author.Image,
			Verified:   post.Author.IsVerified,
		},
		Media: media,
		Engagement: &model.Engagement{
			Likes:    post.LikeCount,
			Comments: post.CommentCount,
			Shares:   post.ShareCount,
			Views:    post.ViewCount,
		},
		PlatformData: map[string]any{
			"post_id": post.PostID,
			"scraper": "scrapecreators",
		},
	}, nil
}

type scInstagramMedia struct {
	Typename       string  `json:"__typename"`
	IsVideo        bool    `json:"is_video"`
	Shortcode      string  `json:"shortcode"`
	VideoURL       string  `json:"video_url"`
	DisplayURL     string  `json:"display_url"`
	VideoDuration  float64 `json:"video_duration"`
	TakenAt        int64   `json:"taken_at_timestamp"`
	VideoPlayCount int     `json:"video_play_count"`
	Caption        struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	Likes struct {
		Count int `json:"count"`
	} `json:"edge_media_preview_like"`
	Comments struct {
		Count int `json:"count"`
	} `json:"edge_media_to_parent_comment"`
	Sidecar struct {
		Edges []struct {
			Node struct {
				DisplayURL string `json:"display_url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
	Owner struct {
		Username      string `json:"username"`
		FullName      string `json:"full_name"`
		ProfilePicURL string `json:"profile_pic_url"`
		IsVerified    bool   `json:"is_verified"`
		FollowedBy    struct {
			Count int `json:"count"`
		} `json:"edge_followed_by"`
	} `json:"owner"`
}

// InstagramPost fetches an instagram post or reel.
func (s *ScrapeCreators) InstagramPost(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	body, err := s.get(ctx, "/v1/instagram/post", rawURL)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data struct {
			Media scInstagramMedia `json:"xdt_shortcode_media"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("scrapecreators: decode instagram post: %w", err)
	}
	m := envelope.Data.Media

	text := ""
	if len(m.Caption.Edges) > 0 {
		text = m.Caption.Edges[0].Node.Text
	}
	isVideo := m.Typename == "XDTGraphVideo" || m.IsVideo

	var media []model.MediaItem
	if isVideo {
		media = append(media, model.MediaItem{
			Type:      "video",
			URL:       m.VideoURL,
			Thumbnail: m.DisplayURL,
			Duration:  m.VideoDuration,
		})
	} else if len(m.Sidecar.Edges) > 0 {
		for _, e := range m.Sidecar.Edges {
			media = append(media, model.MediaItem{Type: "image", URL: e.Node.DisplayURL})
		}
	} else if m.DisplayURL != "" {
		media = append(media, model.MediaItem{Type: "image", URL: m.DisplayURL})
	}

	views := 0
	if isVideo {
		views = m.VideoPlayCount
	}
	contentType := "image"
	if isVideo {
		contentType = "video"
	}

	content := &model.SocialContent{
		Platform:    PlatformInstagram,
		ContentType: contentType,
		URL:         rawURL,
		PlatformID:  m.Shortcode,
		Text:        text,
		// Name carries the handle, Username the full name.
		Author: &model.SocialAuthor{
			Name:     m.Owner.Username,
			Username: m.Owner.FullName,
			Picture:  m.Owner.ProfilePicURL,
			Verified: m.Owner.IsVerified,
		},
		Media: media,
		Engagement: &model.Engagement{
			Likes:    m.Likes.Count,
			Comments: m.Comments.Count,
			Views:    views,
		},
		PlatformData: map[string]any{
			"shortcode": m.Shortcode,
			"followers": m.Owner.FollowedBy.Count,
			"scraper":   "scrapecreators",
		},
	}
	if m.TakenAt > 0 {
		ts := time.Unix(m.TakenAt, 0).UTC()
		content.PostedAt = &ts
	}
	return content, nil
}
