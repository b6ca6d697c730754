package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

// DefaultYouTubeEndpoint is the Data API v3 base.
const DefaultYouTubeEndpoint = "https://www.googleapis.com/youtube/v3"

var (
	ytVideoIDPattern    = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`)
	ytPlaylistIDPattern = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
	isoDurationPattern  = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
)

// YouTubeVideoID extracts the 11-character video id from watch, short and
// embed URL forms. Empty when the URL carries no video id.
func YouTubeVideoID(rawURL string) string {
	m := ytVideoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// YouTubePlaylistID extracts the list= parameter, empty when absent.
func YouTubePlaylistID(rawURL string) string {
	m := ytPlaylistIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseISODuration converts the Data API's PT#H#M#S durations to seconds.
// Unparseable input counts as zero.
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	secs := 0
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		secs += h * 3600
	}
	if m[2] != "" {
		mm, _ := strconv.Atoi(m[2])
		secs += mm * 60
	}
	if m[3] != "" {
		ss, _ := strconv.Atoi(m[3])
		secs += ss
	}
	return secs
}

// YouTube fetches video metadata through the Data API v3. An empty APIKey
// disables the adapter.
type YouTube struct {
	APIKey     string
	HTTPClient *http.Client
	// Endpoint overrides DefaultYouTubeEndpoint, mainly for tests.
	Endpoint string
}

type ytThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ytVideoList struct {
	Items []struct {
		Snippet struct {
			PublishedAt  string                 `json:"publishedAt"`
			ChannelID    string                 `json:"channelId"`
			Title        string                 `json:"title"`
			Description  string                 `json:"description"`
			ChannelTitle string                 `json:"channelTitle"`
			CategoryID   string                 `json:"categoryId"`
			Tags         []string               `json:"tags"`
			Thumbnails   map[string]ytThumbnail `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration   string `json:"duration"`
			Definition string `json:"definition"`
			Caption    string `json:"caption"`
		} `json:"contentDetails"`
		// The Data API reports counts as decimal strings.
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type ytPlaylistItems struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Fetch implements Fetcher. Playlist URLs without a video id resolve to the
// playlist's first video; URLs carrying both keep the explicit video id.
func (y *YouTube) Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	if y.APIKey == "" {
		log.Warn().Msg("youtube api key not configured")
		return nil, nil
	}

	videoID := YouTubeVideoID(rawURL)
	playlistID := YouTubePlaylistID(rawURL)
	fromPlaylist := false
	if videoID == "" {
		if playlistID == "" {
			return nil, fmt.Errorf("no video or playlist id in url %q", rawURL)
		}
		first, err := y.firstPlaylistVideo(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		if first == "" {
			log.Warn().Str("playlist", playlistID).Msg("playlist has no videos")
			return nil, nil
		}
		videoID = first
		fromPlaylist = true
	} else if playlistID != "" {
		fromPlaylist = true
	}

	var list ytVideoList
	params := url.Values{
		"key":  {y.APIKey},
		"id":   {videoID},
		"part": {"snippet,contentDetails,statistics"},
	}
	if err := y.getJSON(ctx, "/videos", params, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		log.Warn().Str("video", videoID).Msg("youtube video not found")
		return nil, nil
	}
	item := list.Items[0]

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	duration := parseISODuration(item.ContentDetails.Duration)

	var media []model.MediaItem
	for _, quality := range []string{"maxres", "high", "medium", "default"} {
		thumb, ok := item.Snippet.Thumbnails[quality]
		if !ok {
			continue
		}
		media = append(media, model.MediaItem{
			Type:      "video",
			URL:       watchURL,
			Thumbnail: thumb.URL,
			Width:     thumb.Width,
			Height:    thumb.Height,
			Duration:  float64(duration),
		})
		break
	}

	content := &model.SocialContent{
		Platform:    PlatformYouTube,
		ContentType: "video",
		URL:         watchURL,
		PlatformID:  videoID,
		Text:        item.Snippet.Description,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Author: &model.SocialAuthor{
			Name:       item.Snippet.ChannelTitle,
			Username:   item.Snippet.ChannelID,
			ProfileURL: "https://www.youtube.com/channel/" + item.Snippet.ChannelID,
		},
		Media: media,
		Engagement: &model.Engagement{
			Likes:    atoi(item.Statistics.LikeCount),
			Comments: atoi(item.Statistics.CommentCount),
			Views:    atoi(item.Statistics.ViewCount),
		},
		PlatformData: map[string]any{
			"video_id":         videoID,
			"channel_id":       item.Snippet.ChannelID,
			"category_id":      item.Snippet.CategoryID,
			"tags":             item.Snippet.Tags,
			"duration_seconds": duration,
			"definition":       item.ContentDetails.Definition,
			"caption":          item.ContentDetails.Caption,
			"is_from_playlist": fromPlaylist,
			"playlist_id":      playlistID,
			"original_url":     rawURL,
		},
	}
	if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		content.PostedAt = &ts
	}
	return content, nil
}

func (y *YouTube) firstPlaylistVideo(ctx context.Context, playlistID string) (string, error) {
	var items ytPlaylistItems
	params := url.Values{
		"key":        {y.APIKey},
		"playlistId": {playlistID},
		"part":       {"contentDetails"},
		"maxResults": {"1"},
	}
	if err := y.getJSON(ctx, "/playlistItems", params, &items); err != nil {
		return "", err
	}
	if len(items.Items) == 0 {
		return "", nil
	}
	return items.Items[0].ContentDetails.VideoID, nil
}

func (y *YouTube) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := y.Endpoint
	if endpoint == "" {
		endpoint = DefaultYouTubeEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(endpoint, "/")+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	hc := y.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("youtube api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("youtube api: quota exceeded or invalid key (status 403)")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("youtube api: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("youtube api: decode response: %w", err)
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
