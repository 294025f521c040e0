// Package version exposes the application version string.
package version

// Version is the application version. Overridden at build time via
// -ldflags "-X freestuff/pkg/version.Version=...".
var Version = "0.2.0-dev"
