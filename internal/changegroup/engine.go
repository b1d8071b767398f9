package changegroup

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/control"
	"github.com/nerrad567/gray-logic-av/internal/processor"
)

// Default engine tuning values.
const (
	// defaultMinAutoPollRate is the floor applied to auto-poll intervals.
	defaultMinAutoPollRate = 50 * time.Millisecond

	// defaultPollTimeout bounds a single timer-driven poll cycle.
	defaultPollTimeout = 10 * time.Second
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver resolves full control names. Implemented by control.Index.
type Resolver interface {
	Resolve(ctx context.Context, fullName string) (control.Indexed, error)
}

// ValueReader reads current control values. Implemented by a processor core
// client. Poll reads bypass any response cache so diffs always see live
// state.
type ValueReader interface {
	ControlValue(ctx context.Context, component, control string) (processor.Value, error)
}

// PollResult is what a manual poll returns to its caller.
type PollResult struct {
	ID      string   `json:"Id"`
	Changes []Change `json:"Changes"`
}

// GroupInfo is a read-only snapshot of one group for status surfaces.
type GroupInfo struct {
	ID           string   `json:"id"`
	Controls     []string `json:"controls"`
	AutoPollRate float64  `json:"auto_poll_rate_seconds,omitempty"`
}

// Config holds change group engine dependencies and tuning.
type Config struct {
	// Resolver resolves control names at poll time. Required.
	Resolver Resolver

	// Reader reads live control values. Required.
	Reader ValueReader

	// Sink receives change events. Optional; nil discards events.
	Sink Sink

	// Logger for engine activity. Optional.
	Logger Logger

	// MinAutoPollRate floors requested auto-poll intervals.
	// Default: 50ms.
	MinAutoPollRate time.Duration

	// PollTimeout bounds each timer-driven poll cycle.
	// Default: 10 seconds.
	PollTimeout time.Duration
}

// Engine owns the process-wide change group table.
//
// Groups are created implicitly by the first Add for an unseen id, polled
// manually or by per-group timers, and destroyed individually or all at once
// by Close. Emitted events carry a sequence number that is monotonic across
// every group the engine owns.
//
// Thread Safety: all methods are safe for concurrent use. Polls of one group
// are strictly serialised; different groups poll independently.
type Engine struct {
	resolver Resolver
	reader   ValueReader
	sink     Sink
	logger   Logger

	minRate     time.Duration
	pollTimeout time.Duration

	mu     sync.RWMutex
	groups map[string]*group
	closed bool

	seq atomic.Uint64

	// ctx parents every timer-driven poll; cancelled on Close.
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// NewEngine creates a change group engine.
//
// Parameters:
//   - cfg: Dependencies and tuning; Resolver and Reader are required
//
// Returns:
//   - *Engine: Ready for use (call Close on shutdown)
//   - error: If a required dependency is missing
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("changegroup: resolver is required")
	}
	if cfg.Reader == nil {
		return nil, errors.New("changegroup: reader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.MinAutoPollRate <= 0 {
		cfg.MinAutoPollRate = defaultMinAutoPollRate
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		resolver:    cfg.Resolver,
		reader:      cfg.Reader,
		sink:        cfg.Sink,
		logger:      cfg.Logger,
		minRate:     cfg.MinAutoPollRate,
		pollTimeout: cfg.PollTimeout,
		groups:      make(map[string]*group),
		ctx:         ctx,
		ctxCancel:   cancel,
	}, nil
}

// Create ensures a group exists. Creating an existing id is a no-op.
func (e *Engine) Create(id string) error {
	if id == "" {
		return ErrIDRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if _, exists := e.groups[id]; !exists {
		e.groups[id] = newGroup(id)
		e.logger.Debug("change group created", "group", id)
	}
	return nil
}

// AddControls adds full control names to a group, creating the group if it
// does not exist yet. Names are accepted unconditionally (resolution happens
// at poll time) and duplicates are ignored. Returns the number actually
// added.
func (e *Engine) AddControls(id string, names []string) (int, error) {
	added, err := e.addNames(id, names)
	if err != nil {
		return 0, err
	}
	return len(added), nil
}

// AddComponentControls adds a component's named controls to a group, creating
// the group if needed. Returns the full names actually added.
func (e *Engine) AddComponentControls(id, component string, controls []string) ([]string, error) {
	names := make([]string, 0, len(controls))
	for _, ctl := range controls {
		if ctl == "" {
			continue
		}
		names = append(names, control.JoinName(component, ctl))
	}
	return e.addNames(id, names)
}

// addNames implements both add variants.
func (e *Engine) addNames(id string, names []string) ([]string, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	g, exists := e.groups[id]
	if !exists {
		g = newGroup(id)
		e.groups[id] = g
		e.logger.Debug("change group created", "group", id)
	}
	e.mu.Unlock()

	added := g.add(names)
	if len(added) > 0 {
		e.logger.Debug("controls added to change group",
			"group", id, "added", len(added))
	}
	return added, nil
}

// Remove drops the named controls from an existing group. Removing names the
// group does not track is a no-op, not an error.
func (e *Engine) Remove(id string, names []string) (removed int, remaining []string, err error) {
	if id == "" {
		return 0, nil, ErrIDRequired
	}
	if names == nil {
		return 0, nil, ErrControlsRequired
	}
	if len(names) == 0 {
		return 0, nil, ErrControlsEmpty
	}

	g, err := e.lookup(id)
	if err != nil {
		return 0, nil, err
	}

	removed, remaining = g.remove(names)
	return removed, remaining, nil
}

// Clear drops every control from an existing group, preserving the group and
// its auto-poll timer. The next poll re-baselines whatever is added after.
func (e *Engine) Clear(id string) (int, error) {
	if id == "" {
		return 0, ErrIDRequired
	}
	g, err := e.lookup(id)
	if err != nil {
		return 0, err
	}
	return g.clear(), nil
}

// Destroy cancels the group's timer and deletes it. Once Destroy returns no
// further poll for the group fires, and every subsequent operation on the id
// fails with ErrGroupNotFound.
func (e *Engine) Destroy(id string) error {
	if id == "" {
		return ErrIDRequired
	}

	e.mu.Lock()
	g, exists := e.groups[id]
	if exists {
		delete(e.groups, id)
	}
	e.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, id)
	}

	// Stop outside the table lock: the timer goroutine may be mid-poll and
	// stop waits for it.
	g.swapAuto(nil).stop()
	e.logger.Debug("change group destroyed", "group", id)
	return nil
}

// Poll reads every tracked control, diffs against the previous poll and
// returns only the controls whose value changed. The first poll after
// creation (or after Clear) reports every tracked control, establishing the
// baseline. A non-empty diff is also emitted to the sink with a global
// sequence number and nanosecond timestamp.
func (e *Engine) Poll(ctx context.Context, id string) (*PollResult, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	g, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	g.pollMu.Lock()
	defer g.pollMu.Unlock()

	changes := make([]Change, 0)
	for _, name := range g.snapshot() {
		entry, err := e.resolver.Resolve(ctx, name)
		if err != nil {
			// Tracked names are validated here, not at add time;
			// unresolvable controls are skipped until the design provides
			// them.
			e.logger.Debug("skipping unresolvable control",
				"group", id, "control", name)
			continue
		}

		value, err := e.reader.ControlValue(ctx, entry.Ref.Component, entry.Ref.Control)
		if err != nil {
			e.logger.Warn("control read failed during poll",
				"group", id, "control", name, "error", err)
			continue
		}

		g.mu.Lock()
		previous, seen := g.lastValues[name]
		if !seen || !valuesEqual(previous.Value, value.Value) {
			g.lastValues[name] = value
			changes = append(changes, Change{Name: name, Value: value.Value, String: value.String})
		}
		g.mu.Unlock()
	}

	if len(changes) > 0 {
		e.emit(id, changes)
	}
	return &PollResult{ID: id, Changes: changes}, nil
}

// AutoPoll starts (or replaces) the group's recurring poll timer. Rates below
// the configured floor are clamped. The timer stops when the group is
// destroyed or the engine closes.
func (e *Engine) AutoPoll(id string, rate time.Duration) error {
	if id == "" {
		return ErrIDRequired
	}
	if rate <= 0 {
		return ErrInvalidRate
	}
	if rate < e.minRate {
		e.logger.Warn("auto-poll rate clamped",
			"group", id, "requested", rate, "minimum", e.minRate)
		rate = e.minRate
	}

	g, err := e.lookup(id)
	if err != nil {
		return err
	}

	next := newAutoPoll(rate)
	next.wg.Add(1)
	go e.autoPollLoop(id, next)

	// Replace after the new loop exists so a replacement never leaves the
	// group untimed; stop the old one outside the group lock.
	g.swapAuto(next).stop()

	e.logger.Info("auto-poll started", "group", id, "rate", rate)
	return nil
}

// Groups returns a snapshot of every live group.
func (e *Engine) Groups() []GroupInfo {
	e.mu.RLock()
	groups := make([]*group, 0, len(e.groups))
	for _, g := range e.groups {
		groups = append(groups, g)
	}
	e.mu.RUnlock()

	infos := make([]GroupInfo, 0, len(groups))
	for _, g := range groups {
		infos = append(infos, GroupInfo{
			ID:           g.id,
			Controls:     g.snapshot(),
			AutoPollRate: g.autoRate().Seconds(),
		})
	}
	return infos
}

// Close destroys every group and stops every timer. Idempotent; the engine
// rejects all further operations with ErrEngineClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	groups := make([]*group, 0, len(e.groups))
	for _, g := range e.groups {
		groups = append(groups, g)
	}
	e.groups = make(map[string]*group)
	e.mu.Unlock()

	e.ctxCancel()
	for _, g := range groups {
		g.swapAuto(nil).stop()
	}
	e.logger.Info("change group engine closed", "groups_destroyed", len(groups))
}

// lookup finds a live group.
func (e *Engine) lookup(id string) (*group, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	g, exists := e.groups[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGroupNotFound, id)
	}
	return g, nil
}

// autoPollLoop is one group's timer goroutine. A slow poll does not stack
// ticks (ticker semantics drop missed ticks), and a failed poll logs and
// waits for the next tick rather than stopping the loop.
func (e *Engine) autoPollLoop(id string, a *autoPoll) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.rate)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(e.ctx, e.pollTimeout)
			_, err := e.Poll(ctx, id)
			cancel()
			if err != nil {
				if errors.Is(err, ErrGroupNotFound) || errors.Is(err, ErrEngineClosed) {
					return
				}
				e.logger.Warn("auto-poll cycle failed", "group", id, "error", err)
			}
		}
	}
}

// emit hands a change event to the sink, if one is configured.
func (e *Engine) emit(id string, changes []Change) {
	seq := e.seq.Add(1) - 1
	now := time.Now()
	event := ChangeEvent{
		GroupID:        id,
		Changes:        changes,
		Timestamp:      now.UnixNano(),
		TimestampMs:    now.UnixMilli(),
		SequenceNumber: seq,
	}

	e.logger.Debug("change group changes",
		"group", id, "changes", len(changes), "sequence", seq)
	if e.sink != nil {
		e.sink.EmitChanges(event)
	}
}

// valuesEqual compares observed control values. Control values are
// primitives in practice; composite values fall back to deep equality.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	}
	return reflect.DeepEqual(a, b)
}
