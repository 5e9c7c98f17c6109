// Package version carries build identification, set with -ldflags -X at
// build time.
package version

import "fmt"

var (
	// Version is the release version of the dataset tools.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String is the one-line build description printed at startup and stamped
// into reports.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
