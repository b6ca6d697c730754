package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrent = 5

// Router fronts the registered providers: it caps concurrent calls, falls
// back to the other provider when the requested one fails, and books token
// usage into the ledger. A provider that fails authentication is marked
// unhealthy and skipped for the rest of the run.
type Router struct {
	mu            sync.Mutex
	providers     map[string]Provider
	defaultModels map[string]string
	unhealthy     map[string]bool

	primary    string
	fallbackOK bool
	sem        *semaphore.Weighted
	ledger     *Ledger
}

// NewRouter builds a router that prefers primary and allows maxConcurrent
// in-flight generations (≤0 means 5). enableFallback turns on one-shot
// cross-provider fallback.
func NewRouter(primary string, enableFallback bool, maxConcurrent int64, ledger *Ledger) *Router {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if ledger == nil {
		ledger = NewLedger(nil)
	}
	return &Router{
		providers:     make(map[string]Provider),
		defaultModels: make(map[string]string),
		unhealthy:     make(map[string]bool),
		primary:       primary,
		fallbackOK:    enableFallback,
		sem:           semaphore.NewWeighted(maxConcurrent),
		ledger:        ledger,
	}
}

// Register adds a provider and the model the router should request when
// falling back to it.
func (r *Router) Register(p Provider, defaultModel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.defaultModels[p.Name()] = defaultModel
}

// Providers lists registered provider names, sorted.
func (r *Router) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Provider returns a registered provider by name.
func (r *Router) Provider(name string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary reports the default provider name.
func (r *Router) Primary() string { return r.primary }

// FallbackEnabled reports whether cross-provider fallback is on.
func (r *Router) FallbackEnabled() bool { return r.fallbackOK }

// DefaultModel reports the fallback model registered for a provider.
func (r *Router) DefaultModel(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultModels[name]
}

// Healthy reports whether a provider has not failed authentication this run.
func (r *Router) Healthy(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unhealthy[name]
}

func (r *Router) markUnhealthy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unhealthy[name] = true
}

// other returns the one registered provider that is not name, when exactly
// such an alternative exists.
func (r *Router) other(name string) (Provider, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n, p := range r.providers {
		if n != name {
			return p, n
		}
	}
	return nil, ""
}

// Usage snapshots the token ledger.
func (r *Router) Usage() UsageSummary { return r.ledger.Summary() }

// ResetStats clears the token ledger.
func (r *Router) ResetStats() { r.ledger.Reset() }

// Generate routes one request. providerName may be empty to use the primary.
// On failure with fallback enabled, the other provider is tried exactly once
// with its own default model; the response then carries FallbackUsed and
// OriginalProvider so callers can see what happened.
func (r *Router) Generate(ctx context.Context, providerName string, req Request) (*Response, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("llm router: %w", err)
	}
	defer r.sem.Release(1)

	name := providerName
	if name == "" {
		name = r.primary
	}
	p, ok := r.Provider(name)
	if !ok {
		return nil, fmt.Errorf("llm router: unknown provider %q", name)
	}

	var firstErr error
	if r.Healthy(name) {
		resp, err := p.Generate(ctx, req)
		if err == nil {
			r.ledger.Record(resp.Model, resp.Usage)
			return resp, nil
		}
		if errors.Is(err, ErrAuth) {
			r.markUnhealthy(name)
			log.Error().Str("provider", name).Msg("llm provider failed auth, disabled for this run")
		}
		firstErr = err
	} else {
		firstErr = fmt.Errorf("provider %q is unhealthy", name)
	}

	if !r.fallbackOK {
		return nil, fmt.Errorf("llm %s: %w", name, firstErr)
	}
	alt, altName := r.other(name)
	if alt == nil || !r.Healthy(altName) {
		return nil, fmt.Errorf("llm %s: %w", name, firstErr)
	}

	log.Warn().Err(firstErr).Str("from", name).Str("to", altName).Msg("llm falling back")
	fb := req
	fb.Model = r.DefaultModel(altName)
	resp, err := alt.Generate(ctx, fb)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			r.markUnhealthy(altName)
		}
		return nil, fmt.Errorf("llm %s failed (%v); fallback %s: %w", name, firstErr, altName, err)
	}
	resp.FallbackUsed = true
	resp.OriginalProvider = name
	r.ledger.Record(resp.Model, resp.Usage)
	return resp, nil
}
