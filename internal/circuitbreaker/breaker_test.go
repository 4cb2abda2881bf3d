// v1
// internal/circuitbreaker/breaker_test.go
package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []State
	b := New("test", Config{MaxFailures: 2, ResetTimeout: time.Minute}, nil,
		WithClock(clock.Now),
		WithStateListener(func(_ string, s State) { transitions = append(transitions, s) }),
	)
	ctx := context.Background()

	if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected closed after one failure, got %s", b.State())
	}
	if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatalf("operation must not run while open")
	}
	if len(transitions) != 1 || transitions[0] != Open {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestBreakerClosesAfterSuccessfulProbe(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("probe", Config{MaxFailures: 1, ResetTimeout: time.Second}, nil, WithClock(clock.Now))
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	clock.Advance(2 * time.Second)
	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected closed after probe, got %s", b.State())
	}
}

func TestBreakerReopensWhenProbeFails(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("reopen", Config{MaxFailures: 3, ResetTimeout: time.Second}, nil, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failing)
	}
	clock.Advance(time.Second)

	if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected reopened breaker, got %s", b.State())
	}
	if err := b.Execute(ctx, succeeding); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected fast fail after reopening, got %v", err)
	}
}

func TestBreakerHonoursCancelledContext(t *testing.T) {
	b := New("ctx", Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Execute(ctx, succeeding); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := New("defaults", Config{}, nil)
	if b.cfg.MaxFailures != defaultMaxFailures {
		t.Fatalf("expected default max failures, got %d", b.cfg.MaxFailures)
	}
	if b.cfg.ResetTimeout != defaultResetTimeout {
		t.Fatalf("expected default reset timeout, got %s", b.cfg.ResetTimeout)
	}
	if b.Name() != "defaults" {
		t.Fatalf("unexpected name %q", b.Name())
	}
	if Closed.String() != "closed" || HalfOpen.String() != "half_open" || Open.String() != "open" {
		t.Fatalf("unexpected state names")
	}
}
