// Package httpclient provides an HTTP client whose outbound requests are
// admitted through a circuit breaker.
//
// Every request passes the Gate before dispatch: when the breaker rejects
// it, the call fails fast with a CIRCUIT_OPEN application error and no
// network traffic is generated. Settled requests report their outcome back
// to the breaker exactly once, so connection-level failures advance the
// failure count while HTTP error statuses do not.
//
// # Basic Usage
//
//	b := breaker.New(breaker.DefaultConfig("billing-api"))
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://billing.example.com",
//	    Timeout: 30 * time.Second,
//	}, b)
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/invoices/123",
//	})
//	if apperrors.IsCircuitOpen(err) {
//	    // dependency is down, back off
//	}
//
// The client also builds the liveness probe used by the breaker's recovery
// prober, see ProbeFunc.
package httpclient
