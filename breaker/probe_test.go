package breaker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func probeConfig() Config {
	return Config{
		Name:                "test-dep",
		FailureThreshold:    1,
		RecoveryTimeout:     time.Minute, // keep the lazy transition out of the way
		RetryTimeout:        10 * time.Millisecond,
		HealthCheckInterval: time.Minute,
		BaseRetryDelay:      time.Millisecond,
		MaxRetryDelay:       8 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestProbeFiresImmediatelyOnOpen(t *testing.T) {
	b := New(probeConfig())
	defer b.Close()

	var probes atomic.Int32
	NewProber(b, func(ctx context.Context) error {
		probes.Add(1)
		return nil
	})

	b.RecordFailure(connFailure())

	waitFor(t, time.Second, func() bool { return b.State() == StateClosed })
	if probes.Load() == 0 {
		t.Error("expected at least one probe after the circuit opened")
	}
}

func TestProbeRetriesUntilSuccess(t *testing.T) {
	b := New(probeConfig())
	defer b.Close()

	var probes atomic.Int32
	NewProber(b, func(ctx context.Context) error {
		if probes.Add(1) < 3 {
			return connFailure()
		}
		return nil
	})

	b.RecordFailure(connFailure())

	waitFor(t, 2*time.Second, func() bool { return b.State() == StateClosed })
	if got := probes.Load(); got < 3 {
		t.Errorf("expected at least 3 probes, got %d", got)
	}

	snap := b.Snapshot()
	if !snap.IsServerReachable {
		t.Error("expected server marked reachable after probe success")
	}
	if snap.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", snap.FailureCount)
	}
}

func TestProbeSuccessResetsBackoff(t *testing.T) {
	b := New(probeConfig())
	defer b.Close()

	NewProber(b, func(ctx context.Context) error { return nil })

	b.RecordFailure(connFailure())
	waitFor(t, time.Second, func() bool { return b.State() == StateClosed })

	if got := b.RetryDelay(); got != b.cfg.BaseRetryDelay {
		t.Errorf("retry delay = %s, want base %s", got, b.cfg.BaseRetryDelay)
	}
}

func TestResetCancelsPendingProbe(t *testing.T) {
	cfg := probeConfig()
	cfg.FailureThreshold = 2 // a stray in-flight probe failure cannot re-trip
	b := New(cfg)
	defer b.Close()

	var probes atomic.Int32
	NewProber(b, func(ctx context.Context) error {
		probes.Add(1)
		return connFailure()
	})

	b.RecordFailure(connFailure())
	b.RecordFailure(connFailure())
	waitFor(t, time.Second, func() bool { return probes.Load() >= 1 })

	b.Reset()
	settled := probes.Load()
	time.Sleep(100 * time.Millisecond)

	// Allow one in-flight probe to finish, but the retry chain must be dead.
	if got := probes.Load(); got > settled+1 {
		t.Errorf("probes continued after reset: %d -> %d", settled, got)
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", b.State())
	}
}

func TestWatchdogProbesWhileOpen(t *testing.T) {
	cfg := probeConfig()
	cfg.RetryTimeout = time.Minute // silence the retry chain; only the watchdog fires
	cfg.MaxRetryDelay = time.Millisecond
	cfg.HealthCheckInterval = 20 * time.Millisecond
	b := New(cfg)
	defer b.Close()

	var probes atomic.Int32
	probeOK := atomic.Bool{}
	p := NewProber(b, func(ctx context.Context) error {
		probes.Add(1)
		if probeOK.Load() {
			return nil
		}
		return connFailure()
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = p.Stop(context.Background()) }()

	b.RecordFailure(connFailure())
	waitFor(t, time.Second, func() bool { return probes.Load() >= 2 })

	probeOK.Store(true)
	waitFor(t, time.Second, func() bool { return b.State() == StateClosed })
}

func TestNetworkRestoredTriggersProbe(t *testing.T) {
	old := reconnectProbeDelay
	reconnectProbeDelay = 10 * time.Millisecond
	defer func() { reconnectProbeDelay = old }()

	cfg := probeConfig()
	cfg.FailureThreshold = 2
	b := New(cfg)
	defer b.Close()

	var probes atomic.Int32
	NewProber(b, func(ctx context.Context) error {
		probes.Add(1)
		return nil
	})

	// One failure below the threshold: unreachable but still closed, so no
	// open-trigger probe is armed. The reconnect trigger is the only one.
	b.RecordFailure(connFailure())
	b.SetOnline(false)
	b.SetOnline(true)

	waitFor(t, time.Second, func() bool { return probes.Load() >= 1 })
	waitFor(t, time.Second, func() bool {
		snap := b.Snapshot()
		return snap.IsServerReachable && snap.FailureCount == 0
	})
}

func TestProbePanicIsContained(t *testing.T) {
	b := New(probeConfig())
	defer b.Close()

	var probes atomic.Int32
	NewProber(b, func(ctx context.Context) error {
		if probes.Add(1) == 1 {
			panic("probe exploded")
		}
		return nil
	})

	b.RecordFailure(connFailure())

	// The panicking first probe is converted to a failure and the retry chain
	// carries on to the succeeding second probe.
	waitFor(t, 2*time.Second, func() bool { return b.State() == StateClosed })
}

func TestProberHealth(t *testing.T) {
	b := New(probeConfig())
	defer b.Close()

	p := NewProber(b, func(ctx context.Context) error { return connFailure() })

	h := p.Health(context.Background())
	if h.Status != "healthy" {
		t.Errorf("expected healthy, got %s", h.Status)
	}

	b.RecordFailure(connFailure())
	h = p.Health(context.Background())
	if h.Status != "unhealthy" {
		t.Errorf("expected unhealthy while unreachable, got %s", h.Status)
	}
}
