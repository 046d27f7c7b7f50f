package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/TremiDkhar/sitelink/internal/version.Version=...".
var (
	Version   = "dev"  // ex: v0.1.0
	Commit    = "none" // ex: abcd123
	BuildDate = ""     // ex: 2026-10-19T14:00:00Z
	GoVersion = runtime.Version()
)

// String renders the build info on one line.
func String() string {
	date := BuildDate
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s)", Version, Commit, date, GoVersion)
}
