package netmon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/kbukum/netguard/component"
	"github.com/kbukum/netguard/logger"
)

// Sink receives online/offline transitions. breaker.SetOnline satisfies it.
type Sink func(online bool)

// Monitor tracks host connectivity and fans transitions out to its sinks.
// It starts assuming the host is online.
type Monitor struct {
	cfg   Config
	log   *logger.Logger
	sinks []Sink

	mu     sync.Mutex
	online bool

	cancel context.CancelFunc
	done   chan struct{}
}

var _ component.Component = (*Monitor)(nil)

// NewMonitor creates a monitor delivering transitions to the given sinks.
func NewMonitor(cfg Config, sinks ...Sink) *Monitor {
	cfg.ApplyDefaults()
	return &Monitor{
		cfg:    cfg,
		log:    logger.WithComponent("netmon"),
		sinks:  sinks,
		online: true,
	}
}

// Name returns the component name.
func (m *Monitor) Name() string { return "netmon" }

// Start launches the polling loop when polling is enabled. Without polling
// the monitor is a passive relay for Set calls and Start is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("connectivity polling disabled")
		return nil
	}
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.poll(loopCtx, m.done)

	m.log.Info("connectivity polling started", logger.Fields(
		"address", m.cfg.CheckAddress,
		"interval", m.cfg.CheckInterval.String(),
	))
	return nil
}

// Stop halts the polling loop. Safe to call more than once.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Health reports healthy while online and degraded while offline. Offline is
// an environmental condition, not a monitor fault.
func (m *Monitor) Health(ctx context.Context) component.Health {
	if m.Online() {
		return component.Health{Name: m.Name(), Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    m.Name(),
		Status:  component.StatusDegraded,
		Message: "host appears offline",
	}
}

// Online returns the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set pushes a connectivity observation from an external source. Transitions
// are delivered to every sink; repeated observations of the same state are
// dropped.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.Unlock()

	m.log.Info("connectivity changed", logger.Fields("online", online))
	for _, sink := range sinks {
		sink(online)
	}
}

// poll dials the check address on the configured interval and feeds the
// outcome through Set.
func (m *Monitor) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	// Establish the real state right away instead of waiting a full interval.
	m.Set(m.check(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Set(m.check(ctx))
		}
	}
}

// check reports whether the check address currently accepts connections.
func (m *Monitor) check(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.CheckAddress)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
