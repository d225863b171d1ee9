package httpclient

import (
	"context"

	"github.com/kbukum/netguard/breaker"
	apperrors "github.com/kbukum/netguard/errors"
	"github.com/kbukum/netguard/logger"
)

// OutcomeRecorder receives gate decisions, for metrics. Implemented by
// observability.GuardMetrics.
type OutcomeRecorder interface {
	RecordRejection(ctx context.Context, dependency string)
	RecordOutcome(ctx context.Context, dependency string, err error)
}

// Gate admits requests through a circuit breaker and reports settled
// outcomes back to it. A nil Gate admits everything.
type Gate struct {
	b   *breaker.Breaker
	rec OutcomeRecorder
	log *logger.Logger
}

// NewGate creates a gate in front of the given breaker.
func NewGate(b *breaker.Breaker) *Gate {
	return &Gate{
		b:   b,
		log: logger.WithComponent("httpclient.gate"),
	}
}

// SetRecorder attaches an outcome recorder. Call before serving traffic.
func (g *Gate) SetRecorder(rec OutcomeRecorder) {
	if g != nil {
		g.rec = rec
	}
}

// Allow reports whether a request may be dispatched. A rejection returns a
// CIRCUIT_OPEN application error and records nothing against the breaker,
// since no request was attempted.
func (g *Gate) Allow(ctx context.Context) error {
	if g == nil || g.b == nil {
		return nil
	}
	if g.b.CanProceed() {
		return nil
	}
	g.log.Debug("request rejected, circuit open", logger.Fields(
		logger.FieldState, g.b.State().String(),
	))
	if g.rec != nil {
		g.rec.RecordRejection(ctx, g.b.Name())
	}
	return apperrors.CircuitOpen(g.b.Name())
}

// Report records the outcome of a settled request. Callers invoke it exactly
// once per dispatched request; rejected requests are never reported. An
// internal fault while recording is logged and swallowed so it cannot mask
// the request's own result.
func (g *Gate) Report(ctx context.Context, err error) {
	if g == nil || g.b == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("outcome report panicked", logger.Fields("panic", r))
		}
	}()
	if g.rec != nil {
		g.rec.RecordOutcome(ctx, g.b.Name(), err)
	}
	if err == nil {
		g.b.RecordSuccess()
		return
	}
	g.b.RecordFailure(err)
}

// Breaker returns the breaker behind the gate, nil for an ungated client.
func (g *Gate) Breaker() *breaker.Breaker {
	if g == nil {
		return nil
	}
	return g.b
}
