package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/processor"
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

// TreeSource provides component tree snapshots for index builds.
// This is typically implemented by a processor core client.
type TreeSource interface {
	ComponentTree(ctx context.Context) ([]processor.Component, error)
}

// Indexed is a resolved control: its reference plus the type descriptor
// captured at index-build time.
type Indexed struct {
	Ref  Ref
	Type *TypeDescriptor
}

// IndexStats holds index observability counters.
type IndexStats struct {
	Controls   int       `json:"controls"`
	Components int       `json:"components"`
	Built      bool      `json:"built"`
	BuiltAt    time.Time `json:"built_at,omitzero"`
	Builds     uint64    `json:"builds"`
}

// Index is the O(1) lookup structure from full control names to control
// references, built lazily from the core's component tree.
//
// The index is a transient, rebuildable cache and never a source of truth:
// Invalidate discards it and the next Resolve rebuilds from a fresh snapshot.
// Keys are joined from the tree's own component/control names, so control
// names containing dots resolve exactly.
//
// Thread Safety: all methods are safe for concurrent use. Rebuilds are
// serialised; concurrent resolves during a rebuild wait for it.
type Index struct {
	source TreeSource
	logger Logger

	mu          sync.RWMutex
	byName      map[string]Indexed
	byComponent map[string][]string
	built       bool
	builtAt     time.Time
	builds      uint64
}

// NewIndex creates an index over the given tree source.
// A nil logger disables logging.
func NewIndex(source TreeSource, logger Logger) *Index {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Index{
		source: source,
		logger: logger,
	}
}

// Resolve looks up a full control name, building the index first if needed.
//
// A miss against a built index returns ErrControlNotFound without triggering
// a rebuild; callers decide when staleness warrants an Invalidate.
func (ix *Index) Resolve(ctx context.Context, fullName string) (Indexed, error) {
	ix.mu.RLock()
	if ix.built {
		entry, ok := ix.byName[fullName]
		ix.mu.RUnlock()
		if !ok {
			return Indexed{}, fmt.Errorf("%w: %q", ErrControlNotFound, fullName)
		}
		return entry, nil
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	if !ix.built {
		if err := ix.buildLocked(ctx); err != nil {
			ix.mu.Unlock()
			return Indexed{}, err
		}
	}
	entry, ok := ix.byName[fullName]
	ix.mu.Unlock()

	if !ok {
		return Indexed{}, fmt.Errorf("%w: %q", ErrControlNotFound, fullName)
	}
	return entry, nil
}

// ComponentControls returns the full names of a component's controls in tree
// order, building the index first if needed. Unknown components return an
// empty slice, not an error.
func (ix *Index) ComponentControls(ctx context.Context, component string) ([]string, error) {
	ix.mu.RLock()
	if ix.built {
		names := append([]string(nil), ix.byComponent[component]...)
		ix.mu.RUnlock()
		return names, nil
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.built {
		if err := ix.buildLocked(ctx); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), ix.byComponent[component]...), nil
}

// Invalidate discards the index. The next Resolve rebuilds from a fresh tree
// snapshot. Safe to call at any time, including before the first build.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.byName = nil
	ix.byComponent = nil
	ix.built = false
	ix.mu.Unlock()

	ix.logger.Debug("control index invalidated")
}

// Stats returns current index statistics.
func (ix *Index) Stats() IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return IndexStats{
		Controls:   len(ix.byName),
		Components: len(ix.byComponent),
		Built:      ix.built,
		BuiltAt:    ix.builtAt,
		Builds:     ix.builds,
	}
}

// buildLocked fetches a tree snapshot and rebuilds the lookup maps.
// Callers hold ix.mu.
func (ix *Index) buildLocked(ctx context.Context) error {
	start := time.Now()

	tree, err := ix.source.ComponentTree(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexBuild, err)
	}

	byName := make(map[string]Indexed)
	byComponent := make(map[string][]string, len(tree))
	for _, comp := range tree {
		names := make([]string, 0, len(comp.Controls))
		for _, ctl := range comp.Controls {
			full := JoinName(comp.Name, ctl.Name)
			if _, exists := byName[full]; exists {
				// First entry wins; duplicate joined names are a design
				// smell worth surfacing.
				ix.logger.Warn("duplicate control name in tree, keeping first",
					"name", full)
				continue
			}
			byName[full] = Indexed{
				Ref:  Ref{Component: comp.Name, Control: ctl.Name},
				Type: DescriptorFor(ctl),
			}
			names = append(names, full)
		}
		byComponent[comp.Name] = names
	}

	ix.byName = byName
	ix.byComponent = byComponent
	ix.built = true
	ix.builtAt = time.Now()
	ix.builds++

	ix.logger.Debug("control index built",
		"components", len(byComponent),
		"controls", len(byName),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
