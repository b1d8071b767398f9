package reliability

import "errors"

// Domain errors for the reliability package.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and the
	// call was rejected without being attempted. It is never retried and
	// never counts toward a retry budget.
	ErrCircuitOpen = errors.New("reliability: circuit breaker is open")

	// ErrRetriesExhausted wraps the last underlying error once the retry
	// budget is spent.
	ErrRetriesExhausted = errors.New("reliability: retries exhausted")
)
