package httpclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{429, ErrCodeRateLimit, true},
		{400, ErrCodeValidation, false},
		{422, ErrCodeValidation, false},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		err := ClassifyStatusCode(tt.status, nil)
		if err == nil {
			t.Fatalf("ClassifyStatusCode(%d) = nil", tt.status)
		}
		if err.Code != tt.wantCode {
			t.Errorf("status %d: code = %s, want %s", tt.status, err.Code, tt.wantCode)
		}
		if err.Retryable != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, err.Retryable, tt.retryable)
		}
	}
	if err := ClassifyStatusCode(200, nil); err != nil {
		t.Errorf("ClassifyStatusCode(200) = %v, want nil", err)
	}
}

func TestConnectivityFailureMethod(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"connection", NewConnectionError(cause), true},
		{"timeout", NewTimeoutError(cause), true},
		{"canceled", NewCanceledError(cause), false},
		{"validation", NewValidationError("bad body"), false},
		{"server 500", ClassifyStatusCode(500, nil), false},
		{"auth 401", ClassifyStatusCode(401, nil), false},
		{"rate limit 429", ClassifyStatusCode(429, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.ConnectivityFailure(); got != tt.want {
				t.Errorf("ConnectivityFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := fmt.Errorf("request: %w", NewConnectionError(cause))

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("errors.As failed through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to reach the cause")
	}
	if !IsConnection(err) {
		t.Error("IsConnection failed through wrapping")
	}
	if !IsRetryable(err) {
		t.Error("connection errors should be retryable")
	}
}
