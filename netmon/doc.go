// Package netmon tracks whether the local host has network connectivity and
// pushes online/offline transitions to interested sinks, typically
// breaker.SetOnline.
//
// The monitor works in two modes that can be combined. Callers with their
// own connectivity signal (platform notifications, an interface watcher)
// push it via Set. When polling is enabled the monitor also dials a known
// endpoint on an interval and derives the state from the dial outcome.
//
//	m := netmon.NewMonitor(cfg, b.SetOnline)
//	registry.Register(m)
package netmon
