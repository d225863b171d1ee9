package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/netguard/component"
	"github.com/kbukum/netguard/logger"
)

// reconnectProbeDelay is how long to wait after the local network comes back
// online before probing the dependency. Variable so tests can shorten it.
var reconnectProbeDelay = 2 * time.Second

// maxProbeDuration bounds a single liveness check even when the injected
// ProbeFunc forgets to set its own timeout.
const maxProbeDuration = 10 * time.Second

// ProbeFunc issues one cheap, side-effect-free liveness check against the
// guarded dependency. It must return nil only when the dependency answered,
// and should carry a short timeout of its own.
type ProbeFunc func(ctx context.Context) error

// Prober drives recovery detection while the circuit is open. It fires a
// probe immediately when the circuit opens, retries failed probes with the
// breaker's backoff, runs a periodic watchdog while the dependency is
// unreachable, and probes once shortly after the local network comes back
// online. Each trigger owns a single timer slot, armed cancel-then-arm, so at
// most one probe timer per kind is ever outstanding.
type Prober struct {
	b   *Breaker
	fn  ProbeFunc
	log *logger.Logger

	retry     timerSlot // immediate-on-open probe and the failed-probe retry chain
	reconnect timerSlot // one-shot probe after the network comes back

	cancel context.CancelFunc
	done   chan struct{}
}

// NewProber creates a recovery prober bound to the breaker. The prober
// attaches itself: the breaker will trigger it on circuit transitions and
// network restoration.
func NewProber(b *Breaker, fn ProbeFunc) *Prober {
	p := &Prober{
		b:   b,
		fn:  fn,
		log: logger.WithComponent("prober"),
	}
	b.attachProber(p)
	return p
}

// Name implements component.Component.
func (p *Prober) Name() string { return "prober" }

// Start launches the watchdog loop: every HealthCheckInterval it probes the
// dependency while the circuit is open and the dependency is marked
// unreachable, so recovery is detected even with no live traffic.
func (p *Prober) Start(ctx context.Context) error {
	if p.done != nil {
		return nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.watchdog(watchCtx)
	p.log.Debug("watchdog started", logger.Fields("interval", p.b.cfg.HealthCheckInterval.String()))
	return nil
}

// Stop cancels the watchdog and any pending probe timers. Safe to call more
// than once.
func (p *Prober) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.cancel = nil
		p.done = nil
	}
	p.retry.stop()
	p.reconnect.stop()
	return nil
}

// Health implements component.Component, reporting the guarded dependency's
// reachability.
func (p *Prober) Health(ctx context.Context) component.Health {
	snap := p.b.Snapshot()
	h := component.Health{Name: p.Name(), Status: component.StatusHealthy}
	if !snap.IsServerReachable {
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("%s unreachable since %s", p.b.Name(), formatFailureTime(snap.LastFailureTime))
	}
	return h
}

// --- triggers (called by the breaker) ---

// circuitOpened arms an immediate probe. Replaces any pending retry.
func (p *Prober) circuitOpened() {
	p.retry.arm(0, p.attemptProbe)
}

// circuitClosed cancels pending probe timers; fired on success and reset.
func (p *Prober) circuitClosed() {
	p.retry.stop()
	p.reconnect.stop()
}

// networkRestored arms a one-shot probe shortly after the local network came
// back online.
func (p *Prober) networkRestored() {
	p.reconnect.arm(reconnectProbeDelay, p.attemptProbe)
}

// --- probing ---

// attemptProbe runs one liveness check and feeds the outcome back into the
// breaker. A failed probe re-arms the retry slot after the larger of
// RetryTimeout and the breaker's current backoff delay.
func (p *Prober) attemptProbe() {
	snap := p.b.Snapshot()
	if snap.State != StateOpen && snap.IsServerReachable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxProbeDuration)
	defer cancel()

	start := time.Now()
	err := p.probe(ctx)
	if err == nil {
		p.log.Info("probe succeeded", logger.DurationFields("probe", time.Since(start)))
		p.b.RecordSuccess()
		return
	}

	p.log.Warn("probe failed", logger.ErrorFields("probe", err))
	p.b.RecordFailure(err)

	delay := p.b.cfg.RetryTimeout
	if d := p.b.RetryDelay(); d > delay {
		delay = d
	}
	p.retry.arm(delay, p.attemptProbe)
}

// probe invokes the injected ProbeFunc, converting a panic into an error so
// the timer goroutine can never crash the process.
func (p *Prober) probe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return p.fn(ctx)
}

func (p *Prober) watchdog(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.b.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := p.b.Snapshot()
			if snap.State == StateOpen && !snap.IsServerReachable {
				p.attemptProbe()
			}
		}
	}
}

func formatFailureTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

// Ensure Prober implements Component.
var _ component.Component = (*Prober)(nil)
