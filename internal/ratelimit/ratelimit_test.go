package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquire_EnforcesMinInterval(t *testing.T) {
	l := New()
	ctx := context.Background()

	start := time.Now()
	if err := l.Acquire(ctx, "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx, "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := time.Since(start); got < 50*time.Millisecond {
		t.Fatalf("second acquire returned after %v, want >= 50ms", got)
	}
}

func TestAcquire_DomainsIndependent(t *testing.T) {
	l := New()
	ctx := context.Background()

	if err := l.Acquire(ctx, "a.example", 5*time.Second); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	start := time.Now()
	if err := l.Acquire(ctx, "b.example", 5*time.Second); err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	if got := time.Since(start); got > time.Second {
		t.Fatalf("unrelated domain blocked for %v", got)
	}
}

func TestAcquire_SerialisesSameDomain(t *testing.T) {
	l := New()
	ctx := context.Background()
	const interval = 30 * time.Millisecond

	var mu sync.Mutex
	var times []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx, "same.example", interval); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 4 {
		t.Fatalf("expected 4 acquires, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		// Order of goroutine scheduling is arbitrary, so compare sorted
		// neighbours after a simple insertion sort.
		for j := i; j > 0 && times[j].Before(times[j-1]); j-- {
			times[j], times[j-1] = times[j-1], times[j]
		}
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-5*time.Millisecond {
			t.Fatalf("acquires %d and %d only %v apart, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New()
	ctx := context.Background()

	if err := l.Acquire(ctx, "slow.example", time.Hour); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(cctx, "slow.example", time.Hour); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestJitter_WithinBounds(t *testing.T) {
	min, max := 100*time.Millisecond, 500*time.Millisecond
	for i := 0; i < 100; i++ {
		d := Jitter(min, max)
		if d < min || d > max {
			t.Fatalf("jitter %v outside [%v, %v]", d, min, max)
		}
	}
}
