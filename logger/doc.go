// Package logger provides structured logging built on zerolog.
//
// It exposes a small Logger wrapper with component tagging and a
// package-level global logger for library code that has no logger
// injected:
//
//	log := logger.NewDefault("netguard")
//	log.WithComponent("breaker").Info("circuit opened", logger.Fields(
//	    "failures", 3,
//	    "retry_delay", "2s",
//	))
package logger
