package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/model"
)

// DefaultFacebookEndpoint is the Graph API base.
const DefaultFacebookEndpoint = "https://graph.facebook.com/v18.0"

var (
	fbNumericPattern   = regexp.MustCompile(`facebook\.com/(\d+)/posts/(?:[\w\-]+/)?(\d+)`)
	fbUsernamePattern  = regexp.MustCompile(`facebook\.com/([\w.]+)/posts/(?:[\w\-]+/)?(\d+)`)
	fbStoryFbidPattern = regexp.MustCompile(`story_fbid=(\d+)`)
	fbPageIDPattern    = regexp.MustCompile(`[?&]id=(\d+)`)
	fbPhotoFbidPattern = regexp.MustCompile(`fbid=(\d+)`)
	fbLongNumPattern   = regexp.MustCompile(`\d{10,}`)
)

// FacebookPostID extracts an object id from the common post URL shapes.
// The Graph API wants page-scoped ids (pageid_postid); username forms come
// back as username_postid and are resolved at fetch time. Empty when no id
// can be recovered.
func FacebookPostID(rawURL string) string {
	if m := fbNumericPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1] + "_" + m[2]
	}
	if strings.Contains(rawURL, "permalink.php") || strings.Contains(rawURL, "story_fbid") {
		story := fbStoryFbidPattern.FindStringSubmatch(rawURL)
		page := fbPageIDPattern.FindStringSubmatch(rawURL)
		if story != nil && page != nil {
			return page[1] + "_" + story[1]
		}
	}
	if m := fbUsernamePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1] + "_" + m[2]
	}
	if strings.Contains(rawURL, "photo.php") {
		if m := fbPhotoFbidPattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	// Path fallback: the first long numeric segment after /posts/.
	parts := strings.Split(strings.TrimRight(rawURL, "/"), "/")
	for i, p := range parts {
		if p != "posts" {
			continue
		}
		for _, candidate := range parts[i+1:] {
			if len(candidate) >= 10 && isDigits(candidate) {
				if i > 0 {
					return parts[i-1] + "_" + candidate
				}
				return candidate
			}
		}
	}
	// Last resort: the final long numeric run anywhere in the URL.
	if nums := fbLongNumPattern.FindAllString(rawURL, -1); len(nums) > 0 {
		return nums[len(nums)-1]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Facebook fetches posts through the Graph API. Page-scoped ids are
// required from Graph v2.4 on, so username URLs resolve the username to a
// page id first and fall back through the other id shapes when that fails.
// An empty AccessToken disables the adapter.
type Facebook struct {
	AccessToken string
	HTTPClient  *http.Client
	// Endpoint overrides DefaultFacebookEndpoint, mainly for tests.
	Endpoint string
}

type fbPost struct {
	Message     string `json:"message"`
	Story       string `json:"story"`
	Type        string `json:"type"`
	CreatedTime string `json:"created_time"`
	FullPicture string `json:"full_picture"`
	From        struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"from"`
	Attachments struct {
		Data []struct {
			Type  string `json:"type"`
			Media struct {
				Source string `json:"source"`
				Image  struct {
					Src string `json:"src"`
				} `json:"image"`
			} `json:"media"`
		} `json:"data"`
	} `json:"attachments"`
	Shares struct {
		Count int `json:"count"`
	} `json:"shares"`
	Reactions struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	} `json:"reactions"`
	Comments struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

// Fetch implements Fetcher.
func (f *Facebook) Fetch(ctx context.Context, rawURL string) (*model.SocialContent, error) {
	if f.AccessToken == "" {
		log.Warn().Msg("facebook access token not configured")
		return nil, nil
	}
	postID := FacebookPostID(rawURL)
	if postID == "" {
		return nil, fmt.Errorf("no post id in url %q", rawURL)
	}

	candidates := []string{postID}
	if user, numeric, ok := splitUsernameID(postID); ok {
		if pageID, err := f.resolvePage(ctx, user); err != nil {
			log.Warn().Err(err).Str("username", user).Msg("facebook page resolution failed")
		} else if pageID != "" {
			candidates = []string{pageID + "_" + numeric, postID, numeric}
		} else {
			candidates = []string{postID, numeric}
		}
	}

	var post *fbPost
	var usedID string
	for _, id := range candidates {
		p, err := f.getPost(ctx, id)
		if err != nil {
			log.Debug().Err(err).Str("id", id).Msg("facebook post id format rejected")
			continue
		}
		post, usedID = p, id
		break
	}
	if post == nil {
		log.Warn().Str("url", rawURL).Msg("all facebook post id formats failed")
		return nil, nil
	}

	var media []model.MediaItem
	if post.FullPicture != "" {
		media = append(media, model.MediaItem{Type: "image", URL: post.FullPicture})
	}
	for _, att := range post.Attachments.Data {
		switch att.Type {
		case "photo":
			if att.Media.Image.Src != "" {
				media = append(media, model.MediaItem{Type: "image", URL: att.Media.Image.Src})
			}
		case "video":
			media = append(media, model.MediaItem{
				Type:      "video",
				URL:       att.Media.Source,
				Thumbnail: att.Media.Image.Src,
			})
		}
	}

	content := &model.SocialContent{
		Platform:    PlatformFacebook,
		ContentType: "post",
		URL:         rawURL,
		PlatformID:  usedID,
		Text:        post.Message,
		Author: &model.SocialAuthor{
			Name:       post.From.Name,
			Username:   post.From.ID,
			ProfileURL: "https://www.facebook.com/" + post.From.ID,
		},
		Media: media,
		Engagement: &model.Engagement{
			Likes:    post.Reactions.Summary.TotalCount,
			Comments: post.Comments.Summary.TotalCount,
			Shares:   post.Shares.Count,
		},
		PlatformData: map[string]any{
			"post_id": usedID,
			"from_id": post.From.ID,
			"story":   post.Story,
			"type":    post.Type,
		},
	}
	// Graph timestamps use +0000 rather than the RFC 3339 colon form.
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if ts, err := time.Parse(layout, post.CreatedTime); err == nil {
			content.PostedAt = &ts
			break
		}
	}
	return content, nil
}

// splitUsernameID reports whether id is username_postid rather than a
// numeric or page-scoped id.
func splitUsernameID(id string) (user, numeric string, ok bool) {
	i := strings.Index(id, "_")
	if i < 0 {
		return "", "", false
	}
	user, numeric = id[:i], id[i+1:]
	if isDigits(user) {
		return "", "", false
	}
	return user, numeric, true
}

func (f *Facebook) resolvePage(ctx context.Context, username string) (string, error) {
	var page struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := f.getJSON(ctx, "/"+username, url.Values{"fields": {"id,name"}}, &page); err != nil {
		return "", err
	}
	return page.ID, nil
}

func (f *Facebook) getPost(ctx context.Context, id string) (*fbPost, error) {
	var post fbPost
	params := url.Values{
		"fields": {"message,created_time,from,full_picture,attachments,shares,reactions.summary(true),comments.summary(true)"},
	}
	if err := f.getJSON(ctx, "/"+id, params, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (f *Facebook) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := f.Endpoint
	if endpoint == "" {
		endpoint = DefaultFacebookEndpoint
	}
	params.Set("access_token", f.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(endpoint, "/")+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	hc := f.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("facebook api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("facebook api: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("facebook api: decode response: %w", err)
	}
	return nil
}
