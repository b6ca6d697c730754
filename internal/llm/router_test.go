package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeProvider struct {
	name string
	text string
	err  error

	mu      sync.Mutex
	calls   int
	lastReq Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &Response{
		Text:     f.text,
		Model:    req.Model,
		Provider: f.name,
		Usage:    Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func newTestRouter(fallback bool, primary, secondary *fakeProvider) *Router {
	r := NewRouter(primary.name, fallback, 0, nil)
	r.Register(primary, primary.name+"-default")
	r.Register(secondary, secondary.name+"-default")
	return r
}

func TestRouterRoutesToPrimaryByDefault(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, text: "from claude"}
	ollama := &fakeProvider{name: ProviderOllama, text: "from ollama"}
	r := newTestRouter(true, claude, ollama)

	resp, err := r.Generate(t.Context(), "", Request{Prompt: "p", Model: "claude-3-5-haiku-20241022"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "from claude" || resp.FallbackUsed {
		t.Errorf("resp = %+v", resp)
	}
	if ollama.callCount() != 0 {
		t.Errorf("secondary called %d times", ollama.callCount())
	}
	sum := r.Usage()
	if sum.TotalRequests != 1 || sum.TotalInputTokens != 10 {
		t.Errorf("usage = %+v", sum)
	}
}

func TestRouterFallsBackOnceWithAltModel(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, err: errors.New("upstream down")}
	ollama := &fakeProvider{name: ProviderOllama, text: "rescued"}
	r := newTestRouter(true, claude, ollama)

	resp, err := r.Generate(t.Context(), "", Request{Prompt: "p", Model: "claude-3-opus-20240229"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !resp.FallbackUsed {
		t.Errorf("FallbackUsed not set")
	}
	if resp.OriginalProvider != ProviderClaude {
		t.Errorf("OriginalProvider = %q", resp.OriginalProvider)
	}
	// The fallback must not reuse the failed provider's model name.
	if got := ollama.lastRequest().Model; got != ProviderOllama+"-default" {
		t.Errorf("fallback model = %q", got)
	}
	if r.Usage().TotalRequests != 1 {
		t.Errorf("only the successful call should be booked, got %+v", r.Usage())
	}
}

func TestRouterFallbackDisabled(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, err: errors.New("upstream down")}
	ollama := &fakeProvider{name: ProviderOllama, text: "unused"}
	r := newTestRouter(false, claude, ollama)

	_, err := r.Generate(t.Context(), "", Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("err = %v", err)
	}
	if ollama.callCount() != 0 {
		t.Errorf("fallback ran despite being disabled")
	}
}

func TestRouterAuthFailureDisablesProvider(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, err: fmt.Errorf("claude: %w", ErrAuth)}
	ollama := &fakeProvider{name: ProviderOllama, text: "rescued"}
	r := newTestRouter(true, claude, ollama)

	if _, err := r.Generate(t.Context(), "", Request{Prompt: "p"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if r.Healthy(ProviderClaude) {
		t.Errorf("provider still healthy after auth failure")
	}

	// The second request must skip the dead provider entirely.
	if _, err := r.Generate(t.Context(), "", Request{Prompt: "p"}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if claude.callCount() != 1 {
		t.Errorf("dead provider called %d times, want 1", claude.callCount())
	}
	if ollama.callCount() != 2 {
		t.Errorf("fallback called %d times, want 2", ollama.callCount())
	}
}

func TestRouterUnknownProvider(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, text: "ok"}
	ollama := &fakeProvider{name: ProviderOllama, text: "ok"}
	r := newTestRouter(true, claude, ollama)

	if _, err := r.Generate(t.Context(), "bedrock", Request{Prompt: "p"}); err == nil {
		t.Fatalf("expected unknown-provider error")
	}
}

func TestRouterExplicitProviderSelection(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, text: "claude"}
	ollama := &fakeProvider{name: ProviderOllama, text: "ollama"}
	r := newTestRouter(true, claude, ollama)

	resp, err := r.Generate(t.Context(), ProviderOllama, Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ollama" {
		t.Errorf("Text = %q", resp.Text)
	}
	if claude.callCount() != 0 {
		t.Errorf("primary called despite explicit selection")
	}
}

type gatedProvider struct {
	inflight atomic.Int64
	max      atomic.Int64
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedProvider) Name() string { return ProviderOllama }

func (g *gatedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	cur := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		old := g.max.Load()
		if cur <= old || g.max.CompareAndSwap(old, cur) {
			break
		}
	}
	g.entered <- struct{}{}
	<-g.release
	return &Response{Text: "ok", Provider: ProviderOllama}, nil
}

func TestRouterCapsConcurrency(t *testing.T) {
	p := &gatedProvider{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	r := NewRouter(ProviderOllama, false, 2, nil)
	r.Register(p, "m")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Generate(context.Background(), "", Request{Prompt: "p"}); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	// Two calls enter, the rest queue on the semaphore.
	<-p.entered
	<-p.entered
	close(p.release)
	wg.Wait()
	for len(p.entered) > 0 {
		<-p.entered
	}
	if got := p.max.Load(); got > 2 {
		t.Errorf("max in-flight = %d, want at most 2", got)
	}
}

func TestRouterResetStats(t *testing.T) {
	claude := &fakeProvider{name: ProviderClaude, text: "ok"}
	ollama := &fakeProvider{name: ProviderOllama, text: "ok"}
	r := newTestRouter(true, claude, ollama)

	if _, err := r.Generate(t.Context(), "", Request{Prompt: "p", Model: "m"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.Usage().TotalRequests != 1 {
		t.Fatalf("usage not recorded: %+v", r.Usage())
	}
	r.ResetStats()
	if got := r.Usage().TotalRequests; got != 0 {
		t.Errorf("TotalRequests after reset = %d", got)
	}
}
