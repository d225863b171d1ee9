// Package errors provides the unified error taxonomy for the resilience layer.
//
// Three families of errors flow through a guarded call:
//
//   - connectivity failures (CONNECTION_FAILED, TIMEOUT): the dependency could
//     not be reached at all; these drive the circuit breaker
//   - application failures (4xx/5xx surfaced by the transport): the dependency
//     was reached and answered with an error; never affect breaker state
//   - CIRCUIT_OPEN: the synthetic rejection raised by the request gate when the
//     breaker refuses a call; carries a dedicated code so callers can
//     special-case it (e.g. show a "service unavailable, retrying" indicator
//     instead of a generic error)
//
// Use IsCircuitOpen to detect gate rejections:
//
//	if errors.IsCircuitOpen(err) {
//	    // no network call was made
//	}
package errors
