// Package sources loads and serves the configured upstream registry. The
// registry is a YAML document listing news and social sources with their
// search endpoints, politeness limits and extraction selectors. It is read
// once at startup and immutable afterwards.
package sources

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/osintscope/eventsearch/internal/model"
)

// file mirrors the on-disk document. Sources appear under a top-level
// `sources:` key, preserving declaration order.
type file struct {
	Sources []model.SourceConfig `yaml:"sources"`
}

// Registry holds the loaded source list in declaration order.
type Registry struct {
	sources []model.SourceConfig
	byName  map[string]int
}

// Load reads and validates a YAML source registry from path.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return Parse(b)
}

// Parse builds a registry from raw YAML bytes. Every entry must carry a
// name and an absolute http(s) base URL; anything else fails the load so
// misconfiguration surfaces at startup rather than mid-run.
func Parse(b []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse sources yaml: %w", err)
	}
	r := &Registry{byName: make(map[string]int, len(f.Sources))}
	for i, s := range f.Sources {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("source %d (%q): %w", i, s.Name, err)
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("source %d: duplicate name %q", i, s.Name)
		}
		r.byName[s.Name] = len(r.sources)
		r.sources = append(r.sources, s)
	}
	return r, nil
}

func validate(s model.SourceConfig) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		return fmt.Errorf("missing base_url")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme %q: want http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", s.BaseURL)
	}
	return nil
}

// List returns sources in declaration order. With enabledOnly set, disabled
// entries are filtered out. The returned slice is a copy.
func (r *Registry) List(enabledOnly bool) []model.SourceConfig {
	out := make([]model.SourceConfig, 0, len(r.sources))
	for _, s := range r.sources {
		if enabledOnly && !s.Enabled {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ByName looks up a source by its configured name.
func (r *Registry) ByName(name string) (model.SourceConfig, bool) {
	i, ok := r.byName[name]
	if !ok {
		return model.SourceConfig{}, false
	}
	return r.sources[i], true
}

// Len reports the total number of configured sources, enabled or not.
func (r *Registry) Len() int { return len(r.sources) }
