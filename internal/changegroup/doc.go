// Package changegroup implements client-side change groups over a processor
// core that has no native subscription support.
//
// A change group is a named set of full control names. Polling a group reads
// every tracked control, diffs the observations against the previous poll and
// reports only what changed. The first poll after creation (or after a clear)
// reports every control, giving subscribers a baseline. Groups can also carry
// a recurring timer that polls at a fixed rate and pushes non-empty diffs to
// an event sink.
//
// # Architecture
//
//	Engine ──── owns ────▶ group table (id → group)
//	  │                       │
//	  │                       ├── membership (insertion-ordered)
//	  │                       ├── lastValues (diff baseline)
//	  │                       └── autoPoll (per-group timer goroutine)
//	  │
//	  ├── Resolver (control.Index): name → component/control at poll time
//	  ├── ValueReader (processor client): live reads, never cached
//	  └── Sink: change events with global sequence numbers
//
// # Key Responsibilities
//
//   - Group lifecycle: implicit creation on first add, idempotent create,
//     synchronous destroy (no timer fires after Destroy returns)
//   - Poll-time diffing: unresolvable or unreadable controls are skipped,
//     not failed, so a group may track controls the design does not expose
//     yet
//   - Event emission: one event per non-empty diff, stamped with nanosecond
//     and millisecond timestamps and a sequence number monotonic across all
//     groups
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Polls of a single group
// are serialised; polls of different groups run independently.
package changegroup
