package reliability

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// countingOp tracks invocations and returns a scripted error.
type countingOp struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (c *countingOp) run() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingOp) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// ─── State machine ─────────────────────────────────────────────────

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 3, ResetTimeout: time.Hour})
	op := &countingOp{err: errors.New("timeout")}

	for range 3 {
		if err := b.Execute(op.run); err == nil {
			t.Fatal("Execute() error = nil, want op failure")
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v after threshold failures, want open", got)
	}

	// Next call fails fast without invoking the operation.
	before := op.callCount()
	if err := b.Execute(op.run); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if got := op.callCount(); got != before {
		t.Errorf("underlying calls = %d, want %d (open circuit must not invoke)", got, before)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 3, ResetTimeout: time.Hour})
	fail := &countingOp{err: errors.New("timeout")}
	ok := &countingOp{}

	// Two failures, then a success, then two more failures: never opens.
	_ = b.Execute(fail.run)
	_ = b.Execute(fail.run)
	_ = b.Execute(ok.run)
	_ = b.Execute(fail.run)
	_ = b.Execute(fail.run)

	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed (success resets the count)", got)
	}
}

func TestBreakerHalfOpenProbeCloses(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1, ResetTimeout: 20 * time.Millisecond})
	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)

	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	time.Sleep(30 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("State() = %v after cooldown, want half-open", got)
	}

	ok := &countingOp{}
	if err := b.Execute(ok.run); err != nil {
		t.Fatalf("probe Execute() error = %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v after successful probe, want closed", got)
	}
}

func TestBreakerHalfOpenProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1, ResetTimeout: 20 * time.Millisecond})
	fail := &countingOp{err: errors.New("timeout")}
	_ = b.Execute(fail.run)

	time.Sleep(30 * time.Millisecond)

	if err := b.Execute(fail.run); err == nil {
		t.Fatal("probe Execute() error = nil, want op failure")
	}
	if got := b.State(); got != StateOpen {
		t.Errorf("State() = %v after failed probe, want open", got)
	}

	// Reopened circuit rejects again until the next cooldown.
	if err := b.Execute(fail.run); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1, ResetTimeout: 10 * time.Millisecond})
	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)
	time.Sleep(20 * time.Millisecond)

	// First caller becomes the probe and holds the slot while running.
	probeStarted := make(chan struct{})
	release := make(chan struct{})
	probeErr := make(chan error, 1)
	go func() {
		probeErr <- b.Execute(func() error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	if err := b.Execute((&countingOp{}).run); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("concurrent Execute() error = %v, want ErrCircuitOpen (one probe only)", err)
	}

	close(release)
	if err := <-probeErr; err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed", got)
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Hour})
	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)

	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	b.Reset()

	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v after Reset, want closed", got)
	}
	if err := b.Execute((&countingOp{}).run); err != nil {
		t.Errorf("Execute() after Reset error = %v", err)
	}
}

func TestBreakerStateChangeHook(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	b := NewBreaker(BreakerConfig{
		Threshold:    1,
		ResetTimeout: 10 * time.Millisecond,
		OnStateChange: func(from, to BreakerState) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)
	time.Sleep(20 * time.Millisecond)
	_ = b.Execute((&countingOp{}).run)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestBreakerStats(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 5, ResetTimeout: time.Hour})
	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)
	_ = b.Execute((&countingOp{err: errors.New("timeout")}).run)

	stats := b.Stats()
	if stats.State != "closed" {
		t.Errorf("State = %q, want closed", stats.State)
	}
	if stats.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", stats.ConsecutiveFailures)
	}
	if stats.LastFailure.IsZero() {
		t.Error("LastFailure is zero after failures")
	}
}
