// Package breaker implements a client-side circuit breaker guarding a single
// remote dependency.
//
// A Breaker tracks connectivity failures reported by the transport layer and
// moves between three states:
//
//   - Closed: normal operation, calls proceed
//   - Open: the dependency is unreachable, calls fail fast
//   - HalfOpen: the recovery window has elapsed, a trial call is allowed through
//
// Only connectivity failures (connection refused, DNS, timeout) count toward
// opening the circuit. A response received from the dependency, whatever its
// status code, proves reachability and never trips the breaker.
//
// While the circuit is open, a Prober issues cheap liveness checks with
// exponential backoff until the dependency answers again, so recovery is
// detected even when no live traffic flows. Every observable mutation is
// published to subscribed listeners.
//
//	b := breaker.New(breaker.DefaultConfig())
//	defer b.Close()
//
//	unsubscribe := b.Subscribe(func(s breaker.Snapshot) {
//	    fmt.Println("state:", s.State)
//	})
//	defer unsubscribe()
//
//	if b.CanProceed() {
//	    err := callDependency()
//	    if err != nil {
//	        b.RecordFailure(err)
//	    } else {
//	        b.RecordSuccess()
//	    }
//	}
package breaker
