package breaker

import (
	"sync"
	"time"

	"github.com/kbukum/netguard/logger"
)

// Breaker is the circuit breaker state machine guarding one remote dependency.
// It is the single owner of its snapshot: all other components read it through
// the public operations and never mutate it directly.
//
// A Breaker is safe for concurrent use; every mutation is serialized, so a
// CanProceed observed immediately after RecordFailure always reflects that
// failure.
type Breaker struct {
	cfg     Config
	backoff Backoff
	log     *logger.Logger
	pub     *publisher

	mu              sync.Mutex
	state           State
	enabled         bool
	online          bool
	serverReachable bool
	failureCount    int
	lastFailureTime time.Time
	retryDelay      time.Duration
	disposed        bool

	prober *Prober
}

// New creates a breaker in the closed state. The configuration is fixed for
// the breaker's lifetime.
func New(cfg Config) *Breaker {
	cfg.ApplyDefaults()

	return &Breaker{
		cfg:             cfg,
		backoff:         Backoff{Base: cfg.BaseRetryDelay, Max: cfg.MaxRetryDelay},
		log:             logger.WithComponent("breaker"),
		pub:             newPublisher(logger.WithComponent("breaker")),
		state:           StateClosed,
		enabled:         true,
		online:          true,
		serverReachable: true,
		retryDelay:      cfg.BaseRetryDelay,
	}
}

// Name returns the name of the guarded dependency.
func (b *Breaker) Name() string {
	return b.cfg.Name
}

// Config returns a copy of the breaker configuration.
func (b *Breaker) Config() Config {
	return b.cfg
}

// CanProceed reports whether a guarded call may be dispatched now. It never
// blocks. While the circuit is open it returns false until RecoveryTimeout
// has elapsed since the last failure; the first caller to evaluate after that
// performs the open → half-open transition and is allowed through. The
// transition is idempotent: a caller that finds the breaker already half-open
// is simply allowed through without re-transitioning. No single-probe
// guarantee is made for callers racing into the recovery window.
//
// A disabled breaker allows everything; a breaker that knows the local host
// is offline allows nothing, regardless of circuit state.
func (b *Breaker) CanProceed() bool {
	b.mu.Lock()

	if b.disposed || !b.enabled {
		b.mu.Unlock()
		return true
	}
	if !b.online {
		b.mu.Unlock()
		return false
	}

	proceed := false
	var transition bool
	var snap Snapshot

	switch b.state {
	case StateClosed, StateHalfOpen:
		proceed = true
	case StateOpen:
		if !b.lastFailureTime.IsZero() && time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
			b.setStateLocked(StateHalfOpen)
			snap = b.snapshotLocked()
			transition = true
			proceed = true
		}
	}
	b.mu.Unlock()

	if transition {
		b.pub.notify(snap)
		b.fireTransition(StateOpen, StateHalfOpen)
	}
	return proceed
}

// RecordSuccess reports a successful guarded call.
//
// In half-open (or open, when a recovery probe succeeds) it closes the
// circuit and resets the failure count and backoff. In closed state it only
// acts when the dependency was marked unreachable by an earlier failure below
// the threshold, restoring reachability without the circuit ever having
// opened. It never changes the local online flag.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}

	from := b.state
	changed := false

	switch b.state {
	case StateHalfOpen, StateOpen:
		b.setStateLocked(StateClosed)
		b.retryDelay = b.backoff.Reset()
		b.serverReachable = true
		b.lastFailureTime = time.Time{}
		changed = true
	case StateClosed:
		if !b.serverReachable {
			b.serverReachable = true
			b.failureCount = 0
			b.retryDelay = b.backoff.Reset()
			b.lastFailureTime = time.Time{}
			changed = true
		}
	}

	snap := b.snapshotLocked()
	prober := b.prober
	b.mu.Unlock()

	if !changed {
		return
	}
	if prober != nil {
		prober.circuitClosed()
	}
	b.pub.notify(snap)
	if from != StateClosed {
		b.fireTransition(from, StateClosed)
	}
}

// RecordFailure reports a failed guarded call. A failure that does not
// classify as a connectivity failure is a complete no-op: no counter,
// timestamp, or state changes. A connectivity failure increments the failure
// count, stamps the failure time, marks the dependency unreachable and
// advances the backoff; crossing the threshold in closed state, or any
// connectivity failure in half-open, opens the circuit and schedules a
// recovery probe.
func (b *Breaker) RecordFailure(err error) {
	if !b.classify(err) {
		return
	}

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}

	b.failureCount++
	b.lastFailureTime = time.Now()
	b.serverReachable = false
	b.retryDelay = b.backoff.Next(b.retryDelay)

	from := b.state
	opened := false
	switch b.state {
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.setStateLocked(StateOpen)
			opened = true
		}
	case StateHalfOpen:
		b.setStateLocked(StateOpen)
		opened = true
	}

	snap := b.snapshotLocked()
	prober := b.prober
	b.mu.Unlock()

	b.pub.notify(snap)
	if opened {
		b.fireTransition(from, StateOpen)
		if prober != nil {
			prober.circuitOpened()
		}
	}
}

// Reset unconditionally forces the breaker back to closed: failure count and
// backoff are reset, the dependency is marked reachable, and any pending
// recovery probe is cancelled. Callable at any time, e.g. from a manual
// "retry now" action.
func (b *Breaker) Reset() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}

	from := b.state
	b.setStateLocked(StateClosed)
	b.retryDelay = b.backoff.Reset()
	b.serverReachable = true
	b.lastFailureTime = time.Time{}

	snap := b.snapshotLocked()
	prober := b.prober
	b.mu.Unlock()

	if prober != nil {
		prober.circuitClosed()
	}
	b.pub.notify(snap)
	if from != StateClosed {
		b.fireTransition(from, StateClosed)
	}
	b.log.Info("breaker reset", logger.Fields(logger.FieldState, StateClosed.String()))
}

// SetOnline records a local network transition reported by the signal source.
// Going offline forces CanProceed to false without touching the circuit
// state; coming back online triggers a delayed recovery probe. Only the
// signal source moves this flag; a successful call does not.
func (b *Breaker) SetOnline(online bool) {
	b.mu.Lock()
	if b.disposed || b.online == online {
		b.mu.Unlock()
		return
	}
	b.online = online
	snap := b.snapshotLocked()
	prober := b.prober
	b.mu.Unlock()

	b.log.Info("network status changed", logger.Fields("online", online))
	b.pub.notify(snap)
	if online && prober != nil {
		prober.networkRestored()
	}
}

// SetEnabled flips the operator toggle. A disabled breaker lets every call
// through and records nothing.
func (b *Breaker) SetEnabled(enabled bool) {
	b.mu.Lock()
	if b.disposed || b.enabled == enabled {
		b.mu.Unlock()
		return
	}
	b.enabled = enabled
	snap := b.snapshotLocked()
	b.mu.Unlock()

	b.log.Info("breaker toggled", logger.Fields("enabled", enabled))
	b.pub.notify(snap)
}

// Enabled reports the operator toggle.
func (b *Breaker) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// State returns the current circuit state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// RetryDelay returns the current backoff delay.
func (b *Breaker) RetryDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retryDelay
}

// Snapshot returns a copy of the observable breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Status returns the snapshot together with the derived verdicts consumers
// care about. Unlike CanProceed it never performs the lazy open → half-open
// transition.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Snapshot:       b.snapshotLocked(),
		CanMakeRequest: b.canProceedReadOnlyLocked(),
		Enabled:        b.enabled,
	}
}

// Subscribe registers a listener for snapshot updates and returns its
// unsubscribe function. Listeners are invoked synchronously, in registration
// order, after every observable mutation.
func (b *Breaker) Subscribe(fn Listener) func() {
	return b.pub.subscribe(fn)
}

// Close disposes the breaker: pending probe timers are cancelled and all
// listeners are cleared. Safe to call more than once.
func (b *Breaker) Close() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	prober := b.prober
	b.mu.Unlock()

	if prober != nil {
		prober.circuitClosed()
	}
	b.pub.clear()
	b.log.Debug("breaker disposed")
}

// --- internals ---

// classify wraps the failure classifier so an unexpected fault inside it can
// never escape to the caller; a fault counts as "not a connectivity failure"
// and the breaker degrades toward staying closed.
func (b *Breaker) classify(err error) (connectivity bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("failure classification panicked", logger.Fields("panic", r))
			connectivity = false
		}
	}()
	return IsConnectivityFailure(err)
}

// setStateLocked transitions to a new state. Entering closed resets the
// failure count; that is the only place the count is ever zeroed.
func (b *Breaker) setStateLocked(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failureCount = 0
	}
	b.log.Info("state transition", logger.Fields(
		logger.FieldFromState, from.String(),
		logger.FieldToState, to.String(),
		logger.FieldFailures, b.failureCount,
		logger.FieldDelay, b.retryDelay.String(),
	))
}

func (b *Breaker) snapshotLocked() Snapshot {
	s := Snapshot{
		State:             b.state,
		IsOnline:          b.online,
		IsServerReachable: b.serverReachable,
		FailureCount:      b.failureCount,
		RetryDelay:        b.retryDelay,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		s.LastFailureTime = &t
	}
	return s
}

// canProceedReadOnlyLocked evaluates the gate verdict without mutating
// anything, for Status reporting.
func (b *Breaker) canProceedReadOnlyLocked() bool {
	if !b.enabled {
		return true
	}
	if !b.online {
		return false
	}
	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		return !b.lastFailureTime.IsZero() && time.Since(b.lastFailureTime) >= b.cfg.RecoveryTimeout
	}
	return false
}

// fireTransition invokes the configured transition hook, recovering a
// panicking hook so breaker operations never throw.
func (b *Breaker) fireTransition(from, to State) {
	hook := b.cfg.OnTransition
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("transition hook panicked", logger.Fields("panic", r))
		}
	}()
	hook(b.cfg.Name, from, to)
}

// attachProber registers the recovery prober. Called by NewProber.
func (b *Breaker) attachProber(p *Prober) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prober = p
}
