// Package processor defines the narrow client interface to a theatre AV
// processor core: connection state, a component/control tree snapshot,
// synchronous per-control reads, coerced writes, and a raw passthrough for
// methods with no typed equivalent.
//
// The wire transport behind a real core is out of scope for this repository;
// Sim provides an in-memory core for simulated mode, demos and tests.
package processor
