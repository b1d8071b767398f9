package changegroup

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/processor"
)

// group is one named change group. The engine owns the group table; each
// group guards its own membership and diff state.
type group struct {
	id string

	// mu guards controls, members, lastValues and auto.
	mu sync.Mutex

	// pollMu serialises polls of this group: a new poll waits for any poll
	// already in flight, so lastValues diffing never races.
	pollMu sync.Mutex

	// controls preserves insertion order for result listings; members
	// backs O(1) membership checks.
	controls []string
	members  map[string]struct{}

	// lastValues holds the previous poll's observations, keyed by full
	// control name. Cleared by Clear so the next poll re-baselines.
	lastValues map[string]processor.Value

	auto *autoPoll
}

func newGroup(id string) *group {
	return &group{
		id:         id,
		members:    make(map[string]struct{}),
		lastValues: make(map[string]processor.Value),
	}
}

// add appends names not already tracked, returning those actually added.
func (g *group) add(names []string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	added := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, exists := g.members[name]; exists {
			continue
		}
		g.members[name] = struct{}{}
		g.controls = append(g.controls, name)
		added = append(added, name)
	}
	return added
}

// remove drops the named controls. Names not tracked are ignored.
func (g *group) remove(names []string) (removed int, remaining []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range names {
		if _, exists := g.members[name]; !exists {
			continue
		}
		delete(g.members, name)
		delete(g.lastValues, name)
		removed++
	}
	if removed > 0 {
		kept := g.controls[:0]
		for _, name := range g.controls {
			if _, exists := g.members[name]; exists {
				kept = append(kept, name)
			}
		}
		g.controls = kept
	}
	return removed, append([]string(nil), g.controls...)
}

// clear drops every control and the diff baseline, preserving the group and
// any auto-poll timer.
func (g *group) clear() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cleared := len(g.controls)
	g.controls = nil
	g.members = make(map[string]struct{})
	g.lastValues = make(map[string]processor.Value)
	return cleared
}

// snapshot returns the tracked names in insertion order.
func (g *group) snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.controls...)
}

// swapAuto installs a new auto-poll record and returns the previous one for
// the caller to stop outside the lock.
func (g *group) swapAuto(next *autoPoll) *autoPoll {
	g.mu.Lock()
	prev := g.auto
	g.auto = next
	g.mu.Unlock()
	return prev
}

// autoRate reports the active auto-poll interval, zero when manual-only.
func (g *group) autoRate() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.auto == nil {
		return 0
	}
	return g.auto.rate
}

// autoPoll is one group's recurring poll timer. Stopping is synchronous: once
// stop returns, the timer goroutine has exited and no further poll will fire.
type autoPoll struct {
	rate     time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newAutoPoll(rate time.Duration) *autoPoll {
	return &autoPoll{
		rate: rate,
		done: make(chan struct{}),
	}
}

// stop signals the timer goroutine and waits for it to exit.
// Safe to call multiple times and on a never-started record.
func (a *autoPoll) stop() {
	if a == nil {
		return
	}
	a.stopOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
	})
}
