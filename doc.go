// Package netguard assembles the client-side resilience layer: a circuit
// breaker guarding one upstream dependency, an HTTP client gated by it, a
// recovery prober, a host connectivity monitor, a status server, and
// OpenTelemetry export.
//
// The Guard wires all of it from a single Config:
//
//	g, err := netguard.New(cfg)
//	if err != nil { ... }
//	if err := g.Start(ctx); err != nil { ... }
//	defer g.Stop(ctx)
//
//	resp, err := g.Client().Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/invoices/123",
//	})
//
// Individual packages (breaker, httpclient, netmon, status) are usable on
// their own; the Guard is the batteries-included arrangement.
package netguard
