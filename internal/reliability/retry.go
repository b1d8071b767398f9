package reliability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Default retry policy values.
const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMultiplier   = 2.0
)

// DefaultRetryableErrors are the message substrings classified as transient.
// The core client surfaces transport failures as wrapped errors, so
// classification is by message rather than by concrete type.
var DefaultRetryableErrors = []string{
	"connection reset",
	"connection refused",
	"timed out",
	"timeout",
	"no such host",
	"temporarily unavailable",
	"broken pipe",
}

// RetryConfig holds retry policy configuration.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// InitialDelay is the backoff before the first retry.
	// Default: 200ms.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff.
	// Default: 5 seconds.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts.
	// Default: 2.0.
	Multiplier float64

	// Jitter randomises each delay by ±20% to avoid retry stampedes.
	Jitter bool

	// RetryableErrors overrides the transient-error substrings.
	// Default: DefaultRetryableErrors.
	RetryableErrors []string

	// OnRetry, if set, is invoked before each backoff wait with the attempt
	// number just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// withDefaults fills zero fields with the default policy.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier <= 1 {
		c.Multiplier = defaultMultiplier
	}
	if c.RetryableErrors == nil {
		c.RetryableErrors = DefaultRetryableErrors
	}
	return c
}

// Retryer wraps operations with transient-failure retries and exponential
// backoff.
//
// Only classified-transient errors are retried; everything else propagates
// immediately. Backoff waits are context-aware, so callers and other work are
// never blocked by a sleeping retry.
type Retryer struct {
	cfg RetryConfig
}

// NewRetryer creates a retryer. Zero config fields take defaults.
func NewRetryer(cfg RetryConfig) *Retryer {
	return &Retryer{cfg: cfg.withDefaults()}
}

// Config returns the effective (defaulted) policy.
func (r *Retryer) Config() RetryConfig {
	return r.cfg
}

// Do invokes op until it succeeds, fails non-transiently, exhausts the
// attempt budget, or ctx is cancelled. On exhaustion the last error is
// wrapped with the attempt count under ErrRetriesExhausted.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if r.cfg.OnRetry != nil {
				r.cfg.OnRetry(attempt-1, lastErr)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("reliability: retry abandoned: %w", ctx.Err())
			case <-time.After(r.delay(attempt - 2)):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("reliability: retry abandoned: %w", ctx.Err())
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.cfg.MaxAttempts, lastErr)
}

// IsTransient reports whether err is classified as transient under this
// retryer's policy. Circuit-open rejections are never transient.
func (r *Retryer) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range r.cfg.RetryableErrors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// delay computes the backoff before retry number n (0-based):
// InitialDelay × Multiplier^n, capped at MaxDelay, with optional ±20% jitter.
func (r *Retryer) delay(n int) time.Duration {
	d := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(n))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.Jitter {
		d *= 0.8 + 0.4*rand.Float64()
	}
	return time.Duration(d)
}
