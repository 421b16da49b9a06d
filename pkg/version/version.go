// Package version carries build-time identifying information, set via
// -ldflags at release build time; the default values below are what a local
// `go build` without those flags produces.
package version

import "fmt"

var (
	Version    string = "dev"
	CommitHash string = "unknown"
)

// Describe renders the one-line string --version prints.
func Describe() string {
	return fmt.Sprintf("felix-index %s (%s)", Version, CommitHash)
}
