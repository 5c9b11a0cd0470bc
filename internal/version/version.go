// Package version exposes build version information.
package version

// Version is the jopsify version, overridable at build time via
// -ldflags "-X github.com/jopsify/jopsify/internal/version.Version=...".
var Version = "0.3.0-dev"
