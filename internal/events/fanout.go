package events

import (
	"sync"

	"github.com/nerrad567/gray-logic-av/internal/changegroup"
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

// Fanout delivers each change event to every registered sink. A panicking
// sink is logged and skipped; the remaining sinks still receive the event.
//
// Sinks registered after events have started flowing receive only subsequent
// events.
//
// Thread Safety: all methods are safe for concurrent use.
type Fanout struct {
	mu     sync.RWMutex
	sinks  []changegroup.Sink
	logger Logger
}

// Ensure Fanout implements changegroup.Sink.
var _ changegroup.Sink = (*Fanout)(nil)

// NewFanout creates a fanout over the given sinks. More can be added later
// with Add.
func NewFanout(logger Logger, sinks ...changegroup.Sink) *Fanout {
	if logger == nil {
		logger = noopLogger{}
	}
	f := &Fanout{logger: logger}
	for _, sink := range sinks {
		if sink != nil {
			f.sinks = append(f.sinks, sink)
		}
	}
	return f
}

// Add registers another sink. Nil sinks are ignored.
func (f *Fanout) Add(sink changegroup.Sink) {
	if sink == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, sink)
	f.mu.Unlock()
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// EmitChanges delivers event to every sink in registration order.
func (f *Fanout) EmitChanges(event changegroup.ChangeEvent) {
	f.mu.RLock()
	sinks := make([]changegroup.Sink, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.RUnlock()

	for _, sink := range sinks {
		f.deliver(sink, event)
	}
}

// deliver hands event to one sink, containing any panic.
func (f *Fanout) deliver(sink changegroup.Sink, event changegroup.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("change event sink panic recovered",
				"group", event.GroupID,
				"panic", r,
			)
		}
	}()
	sink.EmitChanges(event)
}
