package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a call is rejected without being
	// attempted because the dependency's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrDependencyUnavailable is returned when a gating call could not get
	// an answer from a dependency (circuit open, retries exhausted, or a
	// permanent transport failure).
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// StatusError is a non-2xx HTTP response from a dependency.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}
