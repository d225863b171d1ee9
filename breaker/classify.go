package breaker

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	apperrors "github.com/kbukum/netguard/errors"
)

// ConnectivityReporter is implemented by transport errors that carry a
// structured category decided at the transport boundary. When present, its
// verdict takes priority over any inspection of the raw error chain.
type ConnectivityReporter interface {
	ConnectivityFailure() bool
}

// IsConnectivityFailure reports whether err means the dependency could not be
// reached at all, as opposed to an application failure where a response was
// received. Deterministic and side-effect-free.
//
// Decision order:
//  1. a structured transport error reports its own category
//  2. a typed AppError is judged by its code
//  3. transport-level errors with no response (refused, DNS, timeout,
//     abrupt connection loss) are connectivity failures
//  4. anything unrecognized is NOT a connectivity failure, so the breaker
//     fails toward staying closed
//
// A received response with any status code, including 5xx, proves the
// dependency is reachable and is never a connectivity failure.
func IsConnectivityFailure(err error) bool {
	if err == nil {
		return false
	}

	var reporter ConnectivityReporter
	if errors.As(err, &reporter) {
		return reporter.ConnectivityFailure()
	}

	if appErr, ok := apperrors.AsAppError(err); ok {
		switch appErr.Code {
		case apperrors.ErrCodeConnectionFailed, apperrors.ErrCodeTimeout:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	// Abrupt connection loss mid-response.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}
