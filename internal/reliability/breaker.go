package reliability

import (
	"sync"
	"time"
)

// Default breaker policy values.
const (
	defaultThreshold    = 5
	defaultResetTimeout = 30 * time.Second
)

// BreakerState is the circuit breaker's current state.
type BreakerState int

// Breaker states.
const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	Threshold int

	// ResetTimeout is how long the circuit stays open before admitting a
	// half-open probe. Default: 30 seconds.
	ResetTimeout time.Duration

	// OnStateChange, if set, is invoked after each state transition.
	OnStateChange func(from, to BreakerState)
}

// BreakerStats is a snapshot of breaker state for status surfaces.
type BreakerStats struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// Breaker is a circuit breaker guarding calls into the processor core.
//
// Closed passes calls through and counts consecutive failures; reaching the
// threshold opens the circuit. Open rejects calls immediately with
// ErrCircuitOpen until ResetTimeout elapses, then admits exactly one
// half-open probe: success closes the circuit, failure reopens it.
//
// Thread Safety: all methods are safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	lastFailure         time.Time
	openedAt            time.Time
	probing             bool
}

// NewBreaker creates a closed breaker. Zero config fields take defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &Breaker{cfg: cfg}
}

// Execute runs op under the breaker. When the circuit is open the call is
// rejected with ErrCircuitOpen without invoking op.
func (b *Breaker) Execute(op func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := op()
	b.afterCall(err == nil)
	return err
}

// State returns the current state, applying the open→half-open timeout.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Stats returns a snapshot for status surfaces.
func (b *Breaker) Stats() BreakerStats {
	state := b.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:               state.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailure:         b.lastFailure,
	}
}

// Reset forces the breaker closed and clears its counters.
// Safe to call at any time; used by cache-clearing and shutdown paths.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.probing = false
	b.mu.Unlock()

	b.notify(from, StateClosed)
}

// beforeCall admits or rejects the call under the current state.
func (b *Breaker) beforeCall() error {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil

	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		// Cooldown elapsed: admit this call as the half-open probe.
		b.state = StateHalfOpen
		b.probing = true
		b.mu.Unlock()
		b.notify(StateOpen, StateHalfOpen)
		return nil

	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
		b.mu.Unlock()
		return nil

	default:
		b.mu.Unlock()
		return nil
	}
}

// afterCall records the call outcome and applies state transitions.
func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	from := b.state

	if success {
		b.state = StateClosed
		b.consecutiveFailures = 0
		b.probing = false
		b.mu.Unlock()
		if from != StateClosed {
			b.notify(from, StateClosed)
		}
		return
	}

	b.lastFailure = time.Now()
	switch b.state {
	case StateHalfOpen:
		// Probe failed: reopen and restart the cooldown.
		b.state = StateOpen
		b.openedAt = time.Now()
		b.probing = false
		b.mu.Unlock()
		b.notify(StateHalfOpen, StateOpen)

	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.Threshold {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.mu.Unlock()
			b.notify(StateClosed, StateOpen)
			return
		}
		b.mu.Unlock()

	default:
		b.mu.Unlock()
	}
}

// notify invokes the state-change hook outside the lock.
func (b *Breaker) notify(from, to BreakerState) {
	if b.cfg.OnStateChange != nil && from != to {
		b.cfg.OnStateChange(from, to)
	}
}
