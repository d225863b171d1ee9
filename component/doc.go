// Package component defines the lifecycle contract shared by the library's
// long-running pieces (network monitor, recovery prober, status server) and a
// registry that starts them in order and stops them in reverse.
package component
