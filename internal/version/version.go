// Package version provides build-time version information.
package version

// Version is the release version of podog.
var Version = "0.1.0"

// CommitHash is the git commit hash of the build.
// It is set at build time via -ldflags:
//
//	go build -ldflags "-X github.com/otiai10/podog/internal/version.CommitHash=abc1234"
var CommitHash = "unknown"

// UserAgent is sent with every API request.
func UserAgent() string {
	return "podog/" + Version
}

// String returns the version with the commit hash, for -version output.
func String() string {
	return Version + " (" + CommitHash + ")"
}
