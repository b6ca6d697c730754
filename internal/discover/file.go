package discover

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// File serves canned discovery results from a local JSON file for offline
// runs and tests. The file holds an array of {"url": "...", "text": "..."}
// entries; an entry matches when its text contains the query
// case-insensitively, or always when the query is empty.
type File struct {
	Path string
}

func (f *File) Name() string { return "file" }

type fileEntry struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

func (f *File) Discover(_ context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("discover: file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var entries []fileEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Text), q) {
			continue
		}
		out = append(out, e.URL)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
