// Package status exposes the breaker over HTTP: a snapshot endpoint, a
// Server-Sent Events stream of state changes, and authenticated operator
// controls for resetting and toggling the guard.
//
// Routes:
//
//	GET  /status         current breaker status
//	GET  /status/stream  SSE stream of snapshots
//	POST /status/reset   force the circuit closed (operator)
//	PUT  /status/toggle  enable or disable the guard (operator)
//	GET  /health         component health report
//
// Operator endpoints accept either a static token (verified against a bcrypt
// hash) or an HS256 JWT with the operator role. The toggle survives restarts
// through a small file-backed flag store.
package status
