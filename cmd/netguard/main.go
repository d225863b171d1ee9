// Command netguard runs the resilience layer as a standalone sidecar: a
// circuit breaker guarding one upstream dependency, its recovery prober,
// the host connectivity monitor, and the operator status server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/netguard"
	"github.com/kbukum/netguard/config"
	"github.com/kbukum/netguard/logger"
	"github.com/kbukum/netguard/version"
)

const gracefulTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("netguard exited with error", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func run() error {
	var cfg netguard.Config
	if err := config.Load("netguard", &cfg); err != nil {
		return err
	}
	if !cfg.Status.Enabled && !cfg.Monitor.Enabled {
		// Standalone mode without either surface is a config mistake more
		// often than a choice; the sidecar still runs, just warn.
		logger.Warn("both status server and network monitor are disabled")
	}

	g, err := netguard.New(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := g.Start(ctx); err != nil {
		return err
	}

	log := logger.WithComponent("main")
	log.Info("netguard ready", logger.Fields(
		"version", version.Short(),
		"dependency", g.Breaker().Name(),
		"status_addr", g.StatusAddr(),
	))

	waitForSignal(log)

	stopCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	return g.Stop(stopCtx)
}

func waitForSignal(log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.Fields("signal", sig.String()))
}
