// Package version provides build metadata for bizcache.
package version

import (
	"strconv"
	"strings"
)

var (
	// Version is the `git describe` output (injected at build time via ldflags).
	Version = "dev"
	// Commit is the git commit hash (injected at build time via ldflags).
	Commit = "none"
	// BuildDate is the build timestamp (injected at build time via ldflags).
	BuildDate = "unknown"
)

// Short condenses a describe string such as "v0.3.1-20-ga961617-dirty"
// into "v0.3.1-a961617-20". Tagged builds and other values pass through.
func Short() string {
	parts := strings.Split(strings.TrimSuffix(Version, "-dirty"), "-")
	n := len(parts)
	if n < 3 || !strings.HasPrefix(parts[n-1], "g") {
		return Version
	}
	if _, err := strconv.Atoi(parts[n-2]); err != nil {
		return Version
	}
	tag := strings.Join(parts[:n-2], "-")
	return tag + "-" + strings.TrimPrefix(parts[n-1], "g") + "-" + parts[n-2]
}

// String returns formatted version information.
func String() string {
	return Short() + " (commit: " + Commit + ", built: " + BuildDate + ")"
}
