// v1
// internal/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without running the operation while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before a trial call.
	ResetTimeout time.Duration
}

const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
)

// Option customises a Breaker.
type Option func(*Breaker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateListener registers a callback invoked after every state change.
func WithStateListener(fn func(name string, state State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

// Breaker fast-fails calls to a dependency after repeated failures. It is
// safe for concurrent use.
type Breaker struct {
	name     string
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	onChange func(name string, state State)

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// New builds a closed breaker. Non-positive tunables fall back to five
// failures and a thirty second reset timeout.
func New(name string, cfg Config, logger *slog.Logger, opts ...Option) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger.With(slog.String("breaker", name)),
		now:    time.Now,
		state:  Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Info("breaker_created",
		slog.Int("maxFailures", cfg.MaxFailures),
		slog.String("resetTimeout", cfg.ResetTimeout.String()),
	)
	return b
}

// Execute runs op unless the breaker is open. A failure while half-open
// reopens the breaker immediately.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	b.onFailure(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.logger.Warn("breaker_fast_fail", slog.String("since_open", b.now().Sub(b.openedAt).String()))
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.trial = true
		b.logger.Info("breaker_probe_start", slog.Int("previous_failures", b.failures))
		return nil
	case HalfOpen:
		if b.trial {
			return ErrOpen
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.failures = 0
	if b.state != Closed {
		b.logger.Info("breaker_closed_after_probe")
		b.setState(Closed)
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.failures++
	b.logger.Warn("operation_failure", slog.Int("failures", b.failures), slog.Any("err", err))
	if b.state == HalfOpen || b.failures >= b.cfg.MaxFailures {
		b.openedAt = b.now()
		if b.state != Open {
			b.logger.Error("breaker_opened", slog.Int("maxFailures", b.cfg.MaxFailures))
			b.setState(Open)
		}
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	b.state = next
	if b.onChange != nil {
		b.onChange(b.name, next)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker name used in logs and metrics.
func (b *Breaker) Name() string {
	return b.name
}
