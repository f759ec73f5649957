package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vivekavani/gita-engine/pkg/fn"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 10, Burst: 3})
	// Should allow burst
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("expected allow on call %d", i)
		}
	}
	// 4th should be rejected
	if l.Allow() {
		t.Fatal("expected rejection after burst exhausted")
	}
}

func TestLimiterRefill(t *testing.T) {
	now := time.Now()
	l := NewLimiter(LimiterOpts{Rate: 10, Burst: 5})
	l.now = func() time.Time { return now }

	// Drain all tokens
	for i := 0; i < 5; i++ {
		l.Allow()
	}
	if l.Allow() {
		t.Fatal("should be empty")
	}

	// Advance 500ms → 5 tokens refilled
	now = now.Add(500 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("expected allow after refill, call %d", i)
		}
	}
	if l.Allow() {
		t.Fatal("should be empty again")
	}
}

func TestNewLimiterClampsOpts(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0, Burst: 0})
	if l.opts.Rate <= 0 {
		t.Fatalf("rate should be clamped positive, got %v", l.opts.Rate)
	}
	if l.opts.Burst <= 0 {
		t.Fatalf("burst should be clamped positive, got %v", l.opts.Burst)
	}

	// Wait on a drained clamped limiter must block sanely, not spin on a
	// zero or negative duration.
	l.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait after clamp: %v", err)
	}
}

func TestLimiterCall(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1, Burst: 1})
	ctx := context.Background()

	err := l.Call(ctx, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = l.Call(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLimiterWait(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1000, Burst: 1}) // fast refill
	ctx := context.Background()

	l.Allow() // drain

	// Should refill quickly
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("expected Wait to succeed, got %v", err)
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1}) // very slow refill
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	l.Allow() // drain

	err := l.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLimiterStageWait(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1000, Burst: 1}) // fast refill
	ctx := context.Background()

	stage := LimiterStageWait(l, func(ctx context.Context, in int) fn.Result[int] {
		return fn.Ok(in * 2)
	})

	// Both calls succeed; the second waits for a token.
	for i := 0; i < 2; i++ {
		r := stage(ctx, 5)
		if r.IsErr() {
			t.Fatalf("expected success on call %d", i)
		}
		v, _ := r.Unwrap()
		if v != 10 {
			t.Fatalf("expected 10, got %d", v)
		}
	}

	// A cancelled context surfaces as the stage error.
	l.Allow()
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	slow := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	slow.Allow()
	stage = LimiterStageWait(slow, func(ctx context.Context, in int) fn.Result[int] {
		return fn.Ok(in)
	})
	if r := stage(cctx, 1); r.IsOk() {
		t.Fatal("expected context error")
	}
}
