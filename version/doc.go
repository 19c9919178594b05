// Package version exposes build metadata for health reports and log
// fields.
//
// Version, commit, branch, and build time are set at compile time via
// -ldflags; the Go toolchain's VCS stamping fills whatever they leave
// empty:
//
//	go build -ldflags "-X github.com/kbukum/backstop/version.Version=1.0.0"
package version
