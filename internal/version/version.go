// Package version holds build metadata injected via ldflags.
package version

// Set at build time via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "unknown"
)
