// Package version carries build metadata stamped in with -ldflags.
package version

var (
	// Version is the release tag, or "dev" for untagged builds
	Version = "dev"
	// Commit is the short git commit hash of the build
	Commit = "dev"
	// BuildTime is when the binary was built
	BuildTime = "unknown"
)
