// Package resilience wraps task runners with retry and circuit breaking.
//
// The scheduler never retries on its own: a wrapped runner is still one
// task that reports completion once, after its last attempt.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/scheduler"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
	MaxRetries          uint64        // Retries after the first attempt; 0 means bounded only by MaxElapsedTime
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// FromConfig converts the file representation of a retry policy.
func FromConfig(c config.RetryConfig) (RetryConfig, error) {
	cfg := DefaultRetryConfig()

	durations := []struct {
		name string
		val  string
		dst  *time.Duration
	}{
		{"initial_interval", c.InitialInterval, &cfg.InitialInterval},
		{"max_interval", c.MaxInterval, &cfg.MaxInterval},
		{"max_elapsed_time", c.MaxElapsedTime, &cfg.MaxElapsedTime},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.val)
		if err != nil {
			return RetryConfig{}, fmt.Errorf("retry.%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if c.Multiplier != 0 {
		cfg.Multiplier = c.Multiplier
	}
	if c.RandomizationFactor != 0 {
		cfg.RandomizationFactor = c.RandomizationFactor
	}
	return cfg, nil
}

// Contextual is implemented by execution contexts that carry a
// context.Context. Retry stops between attempts once it is done.
type Contextual interface {
	Context() context.Context
}

// BreakerRegistry manages named circuit breakers, typically one per shared
// resource.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewBreakerRegistry creates a new circuit breaker registry.
func NewBreakerRegistry(logger *slog.Logger) *BreakerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
}

// Get returns the circuit breaker for name, creating it on first use.
func (r *BreakerRegistry) Get(name string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // Probe requests while half-open
		Interval:    0,                // Never clear counts while closed
		Timeout:     30 * time.Second, // Open period before probing
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's doing, not a failing resource
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	r.breakers[name] = cb
	return cb
}

// Retry wraps r so that a failing run is retried with exponential backoff,
// each attempt going through cb when it is non-nil. An open circuit stops
// retrying immediately. When the execution context implements Contextual,
// its context bounds the retries too.
func Retry[C any](r scheduler.Runner[C], cfg RetryConfig, cb *gobreaker.CircuitBreaker) scheduler.Runner[C] {
	return &retryRunner[C]{inner: r, cfg: cfg, cb: cb}
}

type retryRunner[C any] struct {
	inner scheduler.Runner[C]
	cfg   RetryConfig
	cb    *gobreaker.CircuitBreaker
}

// Unwrap exposes the wrapped runner so the scheduler derives the task
// identity from it.
func (r *retryRunner[C]) Unwrap() scheduler.Runner[C] { return r.inner }

func (r *retryRunner[C]) Run(execCtx C) error {
	ctx := context.Background()
	if c, ok := any(execCtx).(Contextual); ok {
		ctx = c.Context()
	}

	operation := func() error {
		// Fail fast if cancelled
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		err := r.attempt(execCtx)
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, r.policy(ctx))
}

func (r *retryRunner[C]) attempt(execCtx C) error {
	if r.cb == nil {
		return r.inner.Run(execCtx)
	}
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.inner.Run(execCtx)
	})
	return err
}

func (r *retryRunner[C]) policy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialInterval
	policy.MaxInterval = r.cfg.MaxInterval
	policy.MaxElapsedTime = r.cfg.MaxElapsedTime
	policy.Multiplier = r.cfg.Multiplier
	policy.RandomizationFactor = r.cfg.RandomizationFactor

	var b backoff.BackOff = policy
	if r.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, r.cfg.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}
