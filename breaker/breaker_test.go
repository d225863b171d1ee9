package breaker

import (
	"testing"
	"time"

	apperrors "github.com/kbukum/netguard/errors"
)

func testConfig() Config {
	return Config{
		Name:                "test-dep",
		FailureThreshold:    3,
		RecoveryTimeout:     50 * time.Millisecond,
		RetryTimeout:        10 * time.Millisecond,
		HealthCheckInterval: time.Minute,
		BaseRetryDelay:      time.Second,
		MaxRetryDelay:       30 * time.Second,
	}
}

func connFailure() error {
	return apperrors.ConnectionFailed("test-dep")
}

func appFailure() error {
	return apperrors.ExternalServiceError("test-dep", nil)
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
	if !b.CanProceed() {
		t.Error("expected CanProceed true in closed state")
	}
}

func TestBreakerOpensExactlyAtThreshold(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 1; i <= 3; i++ {
		b.RecordFailure(connFailure())
		if i < 3 && b.State() != StateClosed {
			t.Fatalf("breaker opened after %d failures, threshold is 3", i)
		}
	}

	if b.State() != StateOpen {
		t.Errorf("expected StateOpen after threshold, got %s", b.State())
	}
	if b.CanProceed() {
		t.Error("expected CanProceed false while open")
	}
}

func TestBreakerApplicationFailureIsNoOp(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	before := b.Snapshot()
	for i := 0; i < 10; i++ {
		b.RecordFailure(appFailure())
	}
	after := b.Snapshot()

	if after.State != before.State {
		t.Errorf("state changed: %s -> %s", before.State, after.State)
	}
	if after.FailureCount != 0 {
		t.Errorf("failure count changed to %d", after.FailureCount)
	}
	if after.LastFailureTime != nil {
		t.Error("last failure time was stamped")
	}
	if after.RetryDelay != before.RetryDelay {
		t.Errorf("retry delay changed: %s -> %s", before.RetryDelay, after.RetryDelay)
	}
}

func TestBreakerNilErrorIsNoOp(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	b.RecordFailure(nil)
	if b.FailureCount() != 0 {
		t.Errorf("expected failure count 0, got %d", b.FailureCount())
	}
}

func TestBreakerOpenBlocksUntilRecoveryTimeout(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}

	// Still inside the recovery window.
	if b.CanProceed() {
		t.Error("expected CanProceed false before RecoveryTimeout")
	}
	if b.State() != StateOpen {
		t.Errorf("CanProceed mutated state to %s", b.State())
	}
}

func TestBreakerLazyHalfOpenTransition(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}

	time.Sleep(60 * time.Millisecond)

	if !b.CanProceed() {
		t.Fatal("expected first CanProceed after RecoveryTimeout to pass")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen, got %s", b.State())
	}

	// Idempotent: a second evaluation finds half-open and does not re-transition.
	if !b.CanProceed() {
		t.Error("expected second CanProceed in half-open to pass")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen after second call, got %s", b.State())
	}
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}
	time.Sleep(60 * time.Millisecond)
	b.CanProceed()

	b.RecordSuccess()

	snap := b.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("expected StateClosed, got %s", snap.State)
	}
	if snap.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", snap.FailureCount)
	}
	if snap.RetryDelay != time.Second {
		t.Errorf("expected retry delay reset to base, got %s", snap.RetryDelay)
	}
	if !snap.IsServerReachable {
		t.Error("expected server marked reachable")
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}
	time.Sleep(60 * time.Millisecond)
	b.CanProceed()

	if b.State() != StateHalfOpen {
		t.Fatalf("setup failed: state is %s", b.State())
	}

	b.RecordFailure(connFailure())

	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Errorf("expected StateOpen, got %s", snap.State)
	}
	if snap.LastFailureTime == nil {
		t.Error("expected last failure time re-armed")
	}
}

func TestBreakerRetryDelayBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 10 // keep the circuit closed while counting
	b := New(cfg)
	defer b.Close()

	b.RecordFailure(connFailure())
	if got := b.RetryDelay(); got != 2*time.Second {
		t.Errorf("after 1 failure: retry delay = %s, want 2s", got)
	}

	for i := 0; i < 4; i++ {
		b.RecordFailure(connFailure())
	}
	if got := b.RetryDelay(); got != 30*time.Second {
		t.Errorf("after 5 failures: retry delay = %s, want 30s (capped)", got)
	}
}

func TestBreakerSuccessBelowThresholdResetsCount(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	b.RecordFailure(connFailure())
	b.RecordFailure(connFailure())

	// Success arrives before the third failure: the dependency recovered
	// without the circuit ever opening.
	b.RecordSuccess()

	snap := b.Snapshot()
	if snap.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", snap.FailureCount)
	}
	if !snap.IsServerReachable {
		t.Error("expected server marked reachable")
	}
	if snap.RetryDelay != time.Second {
		t.Errorf("expected retry delay reset to base, got %s", snap.RetryDelay)
	}

	b.RecordFailure(connFailure())
	if b.State() != StateClosed {
		t.Errorf("breaker opened after count reset, state = %s", b.State())
	}
}

func TestBreakerSuccessWhileHealthyIsNoOp(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	var notified int
	unsub := b.Subscribe(func(Snapshot) { notified++ })
	defer unsub()

	b.RecordSuccess()
	if notified != 0 {
		t.Errorf("expected no notification for no-op success, got %d", notified)
	}
}

func TestBreakerReset(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}
	if b.State() != StateOpen {
		t.Fatalf("setup failed: state is %s", b.State())
	}

	b.Reset()

	snap := b.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("expected StateClosed, got %s", snap.State)
	}
	if snap.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", snap.FailureCount)
	}
	if snap.RetryDelay != time.Second {
		t.Errorf("expected retry delay reset to base, got %s", snap.RetryDelay)
	}
	if !snap.IsServerReachable {
		t.Error("expected server marked reachable")
	}
	if snap.LastFailureTime != nil {
		t.Error("expected last failure time cleared")
	}
}

func TestBreakerOfflineForcesCanProceedFalse(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	b.SetOnline(false)

	if b.CanProceed() {
		t.Error("expected CanProceed false while offline, even in closed state")
	}
	if b.State() != StateClosed {
		t.Errorf("going offline mutated circuit state to %s", b.State())
	}

	// A success does not flip the online flag; only the signal source can.
	b.RecordSuccess()
	if b.Snapshot().IsOnline {
		t.Error("RecordSuccess flipped IsOnline back to true")
	}
}

func TestBreakerTransitionHook(t *testing.T) {
	type transition struct{ from, to State }
	var seen []transition

	cfg := testConfig()
	cfg.OnTransition = func(name string, from, to State) {
		if name != "test-dep" {
			t.Errorf("hook got name %q", name)
		}
		seen = append(seen, transition{from, to})
	}
	b := New(cfg)
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}
	time.Sleep(60 * time.Millisecond)
	b.CanProceed()
	b.RecordSuccess()

	want := []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(seen) != len(want) {
		t.Fatalf("got transitions %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestBreakerPanickingHookIsContained(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 1
	cfg.OnTransition = func(string, State, State) {
		panic("hook exploded")
	}
	b := New(cfg)
	defer b.Close()

	// Must not panic through the public operation.
	b.RecordFailure(connFailure())
	if b.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", b.State())
	}
}

func TestBreakerDisabledBypassesGate(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}
	if b.CanProceed() {
		t.Fatal("setup failed: open breaker let a call through")
	}

	b.SetEnabled(false)
	if !b.CanProceed() {
		t.Error("expected disabled breaker to let calls through")
	}

	b.SetEnabled(true)
	if b.CanProceed() {
		t.Error("expected re-enabled breaker to block again")
	}
}

func TestBreakerStatus(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	st := b.Status()
	if !st.CanMakeRequest || !st.Enabled || st.State != StateClosed {
		t.Errorf("unexpected initial status: %+v", st)
	}

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}

	st = b.Status()
	if st.CanMakeRequest {
		t.Error("expected CanMakeRequest false while open")
	}
	// Status must not perform the lazy transition.
	time.Sleep(60 * time.Millisecond)
	_ = b.Status()
	if b.State() != StateOpen {
		t.Errorf("Status performed the lazy transition, state = %s", b.State())
	}
}

func TestBreakerCloseIsIdempotent(t *testing.T) {
	b := New(testConfig())
	b.Close()
	b.Close()

	// Operations after dispose are silent no-ops.
	b.RecordFailure(connFailure())
	if b.FailureCount() != 0 {
		t.Errorf("disposed breaker recorded a failure")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
