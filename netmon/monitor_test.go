package netmon

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestSetNotifiesSinksOnTransition(t *testing.T) {
	var got []bool
	m := NewMonitor(Config{}, func(online bool) { got = append(got, online) })

	m.Set(false)
	m.Set(true)

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("sink observations = %v, want [false true]", got)
	}
}

func TestSetDropsRepeatedState(t *testing.T) {
	var calls int
	m := NewMonitor(Config{}, func(bool) { calls++ })

	m.Set(true) // already online
	m.Set(false)
	m.Set(false)

	if calls != 1 {
		t.Errorf("sink called %d times, want 1", calls)
	}
	if m.Online() {
		t.Error("monitor should report offline")
	}
}

func TestMultipleSinksAllNotified(t *testing.T) {
	var a, b int
	m := NewMonitor(Config{},
		func(bool) { a++ },
		func(bool) { b++ },
	)

	m.Set(false)

	if a != 1 || b != 1 {
		t.Errorf("sinks called (%d, %d), want (1, 1)", a, b)
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	m := NewMonitor(Config{Enabled: false})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPollingDetectsListenerState(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go acceptAll(ln)

	var offline atomic.Int32
	m := NewMonitor(Config{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		CheckAddress:  ln.Addr().String(),
		DialTimeout:   time.Second,
	}, func(online bool) {
		if !online {
			offline.Add(1)
		}
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = m.Stop(context.Background()) }()

	waitFor(t, time.Second, m.Online)

	_ = ln.Close()
	waitFor(t, time.Second, func() bool { return !m.Online() })

	if offline.Load() == 0 {
		t.Error("expected an offline notification after the listener closed")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewMonitor(Config{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		CheckAddress:  "127.0.0.1:1", // nothing listens here
		DialTimeout:   100 * time.Millisecond,
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestHealthReflectsConnectivity(t *testing.T) {
	m := NewMonitor(Config{})

	h := m.Health(context.Background())
	if h.Status != "healthy" {
		t.Errorf("expected healthy while online, got %s", h.Status)
	}

	m.Set(false)
	h = m.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("expected degraded while offline, got %s", h.Status)
	}
}

func acceptAll(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
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
