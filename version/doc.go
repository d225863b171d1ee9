// Package version resolves the build identity of a netguard binary from
// -ldflags variables, with a fallback to the VCS metadata the Go toolchain
// embeds.
package version
