// Package adapter is the command surface of the AV bridge: a single Dispatch
// entry point accepting QRC-style method names with loosely-typed parameters,
// over one processor core connection.
//
// # Architecture
//
//	Dispatch(method, params)
//	    │
//	    ├── alias resolution (Control.GetValues → Control.Get, …)
//	    ├── parameter normalization (bare array / {Controls} / {Names} /
//	    │   single {Name, Value, Ramp?} → one canonical shape)
//	    │
//	    ├── Component.* / Control.* ──▶ index ─▶ validate ─▶ core client
//	    │        │                                   (breaker inside retry)
//	    │        └── reads through the response cache, writes invalidate
//	    │
//	    ├── ChangeGroup.* ──▶ change group engine
//	    └── Status.Get ──▶ raw passthrough + adapter snapshot
//
// # Key Responsibilities
//
//   - Uniform results and typed CommandError failures, classified by code
//   - Batch writes apply per control and report one entry each; a single
//     failed entry never aborts the batch
//   - Ramped writes: Control.Set passes Ramp through raw to the core;
//     Component.Set warns and applies the value without ramp
//   - Ownership of the per-connection registries (index, cache, breaker,
//     change groups) so multiple adapters coexist in one process
//
// # Thread Safety
//
// All Adapter methods are safe for concurrent use.
package adapter
