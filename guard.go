package netguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/netguard/breaker"
	"github.com/kbukum/netguard/component"
	"github.com/kbukum/netguard/httpclient"
	"github.com/kbukum/netguard/logger"
	"github.com/kbukum/netguard/netmon"
	"github.com/kbukum/netguard/observability"
	"github.com/kbukum/netguard/status"
)

// Guard is the assembled resilience layer for one guarded dependency.
type Guard struct {
	cfg      Config
	log      *logger.Logger
	b        *breaker.Breaker
	client   *httpclient.Client
	prober   *breaker.Prober
	monitor  *netmon.Monitor
	server   *status.Server
	registry *component.Registry

	mu      sync.Mutex
	metrics *observability.GuardMetrics
	uninstr func()
	started bool
}

// New builds a guard from the configuration. Nothing is started yet; call
// Start to bring the components up.
func New(cfg Config) (*Guard, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("netguard: %w", err)
	}

	logger.Init(cfg.Logging)

	g := &Guard{
		cfg:      cfg,
		log:      logger.WithComponent("guard"),
		registry: component.NewRegistry(),
	}

	g.b = breaker.New(cfg.Breaker)

	// The operator toggle survives restarts.
	flags := status.NewFlagStore(cfg.Status.FlagFile)
	f, err := flags.Load()
	if err != nil {
		g.log.Warn("could not load persisted flags, using defaults",
			logger.ErrorFields("load", err))
	}
	g.b.SetEnabled(f.Enabled)

	client, err := httpclient.New(cfg.Client, g.b)
	if err != nil {
		return nil, fmt.Errorf("netguard: %w", err)
	}
	g.client = client

	g.prober = breaker.NewProber(g.b, g.instrumentedProbe(client.ProbeFunc()))
	g.monitor = netmon.NewMonitor(cfg.Monitor, g.b.SetOnline)

	// Telemetry starts first so later components export from the beginning,
	// and stops last.
	if err := g.registry.Register(observability.NewProvider(cfg.Telemetry)); err != nil {
		return nil, fmt.Errorf("netguard: %w", err)
	}
	if err := g.registry.Register(g.prober); err != nil {
		return nil, fmt.Errorf("netguard: %w", err)
	}
	if err := g.registry.Register(g.monitor); err != nil {
		return nil, fmt.Errorf("netguard: %w", err)
	}
	if cfg.Status.Enabled {
		handler := status.NewHandler(g.b, flags, g.registry)
		g.server = status.NewServer(cfg.Status, handler)
		if err := g.registry.Register(g.server); err != nil {
			return nil, fmt.Errorf("netguard: %w", err)
		}
	}

	return g, nil
}

// Start brings every component up in registration order and attaches the
// guard metrics once the telemetry provider is running.
func (g *Guard) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return nil
	}

	if err := g.registry.StartAll(ctx); err != nil {
		return fmt.Errorf("netguard: start: %w", err)
	}

	metrics, err := observability.NewGuardMetrics(observability.Meter("netguard"))
	if err != nil {
		g.log.Warn("guard metrics unavailable", logger.ErrorFields("metrics", err))
	} else {
		g.metrics = metrics
		g.client.SetRecorder(metrics)
		g.uninstr = metrics.Instrument(g.b)
	}

	g.started = true
	g.log.Info("guard started", logger.Fields(
		"dependency", g.b.Name(),
		"base_url", g.cfg.Client.BaseURL,
	))
	return nil
}

// Stop shuts components down in reverse order and disposes the breaker.
// Safe to call more than once.
func (g *Guard) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started {
		return nil
	}
	g.started = false

	if g.uninstr != nil {
		g.uninstr()
		g.uninstr = nil
	}

	err := g.registry.StopAll(ctx)
	g.b.Close()
	if err != nil {
		return fmt.Errorf("netguard: stop: %w", err)
	}
	g.log.Info("guard stopped")
	return nil
}

// Client returns the gated HTTP client.
func (g *Guard) Client() *httpclient.Client { return g.client }

// Breaker returns the circuit breaker.
func (g *Guard) Breaker() *breaker.Breaker { return g.b }

// Monitor returns the connectivity monitor, for callers pushing their own
// online/offline signal.
func (g *Guard) Monitor() *netmon.Monitor { return g.monitor }

// Components returns the component registry, for health reporting.
func (g *Guard) Components() *component.Registry { return g.registry }

// StatusAddr returns the status server's listen address, empty when the
// server is disabled.
func (g *Guard) StatusAddr() string {
	if g.server == nil {
		return ""
	}
	return g.server.Addr()
}

// instrumentedProbe wraps the liveness probe with probe metrics. Metrics are
// attached after Start, so the wrapper re-reads them on every call.
func (g *Guard) instrumentedProbe(probe breaker.ProbeFunc) breaker.ProbeFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := probe(ctx)

		g.mu.Lock()
		m := g.metrics
		g.mu.Unlock()
		if m != nil {
			m.RecordProbe(ctx, g.b.Name(), err == nil, time.Since(start))
		}
		return err
	}
}
