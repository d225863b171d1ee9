package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/netguard/breaker"
)

// GuardMetrics holds the instruments describing circuit behavior.
type GuardMetrics struct {
	transitions   metric.Int64Counter
	rejections    metric.Int64Counter
	failures      metric.Int64Counter
	requests      metric.Int64Counter
	probes        metric.Int64Counter
	probeDuration metric.Float64Histogram
}

// NewGuardMetrics creates the guard instruments on the given meter.
func NewGuardMetrics(meter metric.Meter) (*GuardMetrics, error) {
	transitions, err := meter.Int64Counter("guard.transitions",
		metric.WithDescription("Circuit state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.transitions counter: %w", err)
	}

	rejections, err := meter.Int64Counter("guard.rejections",
		metric.WithDescription("Requests rejected by an open circuit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.rejections counter: %w", err)
	}

	failures, err := meter.Int64Counter("guard.failures",
		metric.WithDescription("Connectivity failures recorded against the circuit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.failures counter: %w", err)
	}

	requests, err := meter.Int64Counter("guard.requests",
		metric.WithDescription("Dispatched guarded requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.requests counter: %w", err)
	}

	probes, err := meter.Int64Counter("guard.probes",
		metric.WithDescription("Recovery probes by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.probes counter: %w", err)
	}

	probeDuration, err := meter.Float64Histogram("guard.probe.duration",
		metric.WithDescription("Recovery probe duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating guard.probe.duration histogram: %w", err)
	}

	return &GuardMetrics{
		transitions:   transitions,
		rejections:    rejections,
		failures:      failures,
		requests:      requests,
		probes:        probes,
		probeDuration: probeDuration,
	}, nil
}

// RecordRejection counts a request the gate turned away.
func (m *GuardMetrics) RecordRejection(ctx context.Context, dependency string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
	))
}

// RecordOutcome counts a dispatched request that settled.
func (m *GuardMetrics) RecordOutcome(ctx context.Context, dependency string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if breaker.IsConnectivityFailure(err) {
			outcome = "connectivity_error"
		}
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("outcome", outcome),
	))
}

// RecordProbe counts a recovery probe attempt.
func (m *GuardMetrics) RecordProbe(ctx context.Context, dependency string, ok bool, d time.Duration) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	attrs := metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("outcome", outcome),
	)
	m.probes.Add(ctx, 1, attrs)
	m.probeDuration.Record(ctx, d.Seconds(), attrs)
}

// Instrument subscribes to the breaker and derives transition and failure
// counts from its snapshots. The returned function detaches the subscription.
func (m *GuardMetrics) Instrument(b *breaker.Breaker) func() {
	var mu sync.Mutex
	lastState := b.State()
	lastFailures := b.FailureCount()

	return b.Subscribe(func(s breaker.Snapshot) {
		mu.Lock()
		prevState, prevFailures := lastState, lastFailures
		lastState, lastFailures = s.State, s.FailureCount
		mu.Unlock()

		ctx := context.Background()
		if s.State != prevState {
			m.transitions.Add(ctx, 1, metric.WithAttributes(
				attribute.String("dependency", b.Name()),
				attribute.String("from", prevState.String()),
				attribute.String("to", s.State.String()),
			))
		}
		if s.FailureCount > prevFailures {
			m.failures.Add(ctx, int64(s.FailureCount-prevFailures), metric.WithAttributes(
				attribute.String("dependency", b.Name()),
			))
		}
	})
}
