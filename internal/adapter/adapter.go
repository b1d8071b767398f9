package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/changegroup"
	"github.com/nerrad567/gray-logic-av/internal/control"
	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// Cache key scheme for idempotent reads. Writes invalidate all keys touching
// the written control's component.
const (
	cacheKeyComponents     = "components"
	cacheKeyComponentOne   = "component:"
	cacheKeyControlReading = "control:"
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

// Options configures an Adapter.
type Options struct {
	// Client is the processor core connection. Required.
	Client processor.Client

	// Sink receives change group events. Optional; nil discards them.
	Sink changegroup.Sink

	// Logger for adapter activity. Optional.
	Logger Logger

	// Retry tunes the default retry policy for core calls.
	Retry reliability.RetryConfig

	// Breaker tunes the circuit breaker guarding core calls.
	Breaker reliability.BreakerConfig

	// Cache tunes the idempotent-read response cache.
	Cache reliability.CacheConfig

	// MinAutoPollRate floors change group auto-poll intervals.
	MinAutoPollRate time.Duration

	// PollTimeout bounds timer-driven change group polls.
	PollTimeout time.Duration
}

// Adapter is the command surface over one processor core connection.
//
// It owns the control index, the change group engine, the response cache and
// the circuit breaker for that connection; multiple adapters coexist without
// shared state.
//
// Thread Safety: all methods are safe for concurrent use.
type Adapter struct {
	client  processor.Client
	index   *control.Index
	engine  *changegroup.Engine
	retryer *reliability.Retryer
	breaker *reliability.Breaker
	cache   *reliability.Cache
	logger  Logger

	startedAt time.Time
	closeOnce sync.Once
}

// New creates an adapter over a processor core client.
//
// Parameters:
//   - opts: Dependencies and tuning; Client is required
//
// Returns:
//   - *Adapter: Ready to dispatch (call Close on shutdown)
//   - error: If a required dependency is missing
func New(opts Options) (*Adapter, error) {
	if opts.Client == nil {
		return nil, errors.New("adapter: client is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	index := control.NewIndex(opts.Client, opts.Logger)
	engine, err := changegroup.NewEngine(changegroup.Config{
		Resolver:        index,
		Reader:          opts.Client,
		Sink:            opts.Sink,
		Logger:          opts.Logger,
		MinAutoPollRate: opts.MinAutoPollRate,
		PollTimeout:     opts.PollTimeout,
	})
	if err != nil {
		return nil, err
	}

	breakerCfg := opts.Breaker
	if breakerCfg.OnStateChange == nil {
		logger := opts.Logger
		breakerCfg.OnStateChange = func(from, to reliability.BreakerState) {
			logger.Warn("circuit breaker state change",
				"from", from.String(), "to", to.String())
		}
	}

	return &Adapter{
		client:    opts.Client,
		index:     index,
		engine:    engine,
		retryer:   reliability.NewRetryer(opts.Retry),
		breaker:   reliability.NewBreaker(breakerCfg),
		cache:     reliability.NewCache(opts.Cache),
		logger:    opts.Logger,
		startedAt: time.Now(),
	}, nil
}

// Close shuts the adapter down: destroys every change group, stops its
// timers, clears the index and cache and resets the breaker. Idempotent.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() {
		a.engine.Close()
		a.cache.Stop()
		a.cache.Clear()
		a.index.Invalidate()
		a.breaker.Reset()
		a.logger.Info("adapter closed")
	})
}

// ClearCaches discards the control index and response cache and resets the
// circuit breaker, without touching change groups. Safe to invoke at any
// time; the next read rebuilds what it needs.
func (a *Adapter) ClearCaches() {
	a.index.Invalidate()
	a.cache.Clear()
	a.breaker.Reset()
	a.logger.Info("adapter caches cleared")
}

// ChangeGroups returns a snapshot of every live change group.
func (a *Adapter) ChangeGroups() []changegroup.GroupInfo {
	return a.engine.Groups()
}

// call runs op against the core with the breaker inside the retry loop: every
// attempt consults the breaker, and an open circuit aborts the remaining
// budget because ErrCircuitOpen is not transient.
func (a *Adapter) call(ctx context.Context, retryer *reliability.Retryer, op func(ctx context.Context) error) error {
	return retryer.Do(ctx, func(ctx context.Context) error {
		return a.breaker.Execute(func() error {
			return op(ctx)
		})
	})
}

// invalidateWrite drops the cache entries a control write makes stale.
func (a *Adapter) invalidateWrite(component, fullName string) {
	a.cache.Invalidate(cacheKeyControlReading + fullName)
	a.cache.Invalidate(cacheKeyComponentOne + component)
	a.cache.Invalidate(cacheKeyComponents)
}
