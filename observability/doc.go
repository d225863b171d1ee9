// Package observability provides OpenTelemetry tracing and metrics for the
// guard.
//
// The Provider component owns the OTLP exporters and registers the global
// tracer and meter providers. GuardMetrics carries the instruments specific
// to circuit behavior: state transitions, gate decisions, recorded failures,
// and recovery probes.
//
//	p := observability.NewProvider(cfg)
//	registry.Register(p)
//
//	metrics, err := observability.NewGuardMetrics(observability.Meter("netguard"))
//	defer metrics.Instrument(b)()
package observability
