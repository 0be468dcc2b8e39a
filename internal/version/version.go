// Package version exposes build metadata injected via -ldflags.
package version

// Version is the semantic version of the build, set at link time.
var Version = "dev"

// Commit is the git commit the binary was built from, set at link time.
var Commit = "unknown"
