package breaker

import "time"

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a trial request to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Snapshot is the externally observable state of a Breaker. It is an immutable
// copy; mutating it has no effect on the breaker.
type Snapshot struct {
	// State is the current circuit state.
	State State
	// IsOnline is the last known reachability of the local host to any network.
	IsOnline bool
	// IsServerReachable is the last known reachability of the guarded dependency.
	IsServerReachable bool
	// FailureCount is the number of connectivity failures recorded since the
	// circuit last closed.
	FailureCount int
	// LastFailureTime is the time of the most recent connectivity failure,
	// nil if none has been recorded since the last reset.
	LastFailureTime *time.Time
	// RetryDelay is the current backoff delay between recovery attempts.
	RetryDelay time.Duration
}

// Status is the consumer-facing view of the breaker: the snapshot plus the
// derived verdict a caller actually cares about.
type Status struct {
	Snapshot
	// CanMakeRequest reports whether a guarded call issued now would be
	// allowed to proceed. Unlike CanProceed it never mutates the breaker.
	CanMakeRequest bool
	// Enabled reports the operator toggle. A disabled breaker lets every
	// call through regardless of circuit state.
	Enabled bool
}
