// Package version carries build metadata injected at link time via
// -ldflags="-X ...".
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the version with its commit for log lines and health
// reporting.
func String() string {
	return Version + " (" + GitSHA + ")"
}
