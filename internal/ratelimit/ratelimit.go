// Package ratelimit serialises outbound requests per domain so every remote
// host observes at least a configured minimum interval between hits.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter gates requests by domain. One gate exists per domain; acquires for
// the same domain are serialised while unrelated domains proceed in parallel.
// The zero value is ready to use.
type Limiter struct {
	mu    sync.Mutex
	gates map[string]*gate

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type gate struct {
	mu   sync.Mutex
	last time.Time
}

// New returns a Limiter with default clock and sleeper.
func New() *Limiter {
	return &Limiter{}
}

// Acquire blocks until at least minInterval has elapsed since the previous
// acquire for domain, then records the new acquire time. It returns early
// with the context error when ctx is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context, domain string, minInterval time.Duration) error {
	g := l.gateFor(domain)

	// Holding the gate serialises concurrent acquires for one domain; each
	// waiter observes the acquire time written by its predecessor.
	g.mu.Lock()
	defer g.mu.Unlock()

	if minInterval > 0 && !g.last.IsZero() {
		elapsed := l.clock()().Sub(g.last)
		if wait := minInterval - elapsed; wait > 0 {
			if err := l.sleeper()(ctx, wait); err != nil {
				return err
			}
		}
	}
	g.last = l.clock()()
	return nil
}

// LastAcquire reports the most recent acquire time for domain, or a zero
// time when the domain has never been acquired.
func (l *Limiter) LastAcquire(domain string) time.Time {
	l.mu.Lock()
	g, ok := l.gates[domain]
	l.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (l *Limiter) gateFor(domain string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gates == nil {
		l.gates = make(map[string]*gate)
	}
	g, ok := l.gates[domain]
	if !ok {
		g = &gate{}
		l.gates[domain] = g
	}
	return g
}

func (l *Limiter) clock() func() time.Time {
	if l.now != nil {
		return l.now
	}
	return time.Now
}

func (l *Limiter) sleeper() func(ctx context.Context, d time.Duration) error {
	if l.sleep != nil {
		return l.sleep
	}
	return sleepCtx
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Jitter returns a uniformly random duration in [min, max]. The fetcher
// sleeps this long after each rate-limited request to blur pacing.
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
