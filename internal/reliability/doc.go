// Package reliability wraps calls into the processor core with failure
// handling: retry with exponential backoff for classified-transient errors, a
// circuit breaker that fails fast while the core is struggling, and a
// bounded, TTL'd response cache for idempotent reads with singleflight
// deduplication of concurrent identical loads.
//
// The pieces compose breaker-inside-retry: the dispatcher runs
// retryer.Do(ctx, func() { return breaker.Execute(op) }), so an open circuit
// rejects immediately (ErrCircuitOpen is classified non-transient) while
// transient call failures are retried and each attempt's outcome feeds the
// breaker's consecutive-failure count.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package reliability
