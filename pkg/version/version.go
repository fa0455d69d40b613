package version

import "runtime"

// This variables are injected at build time.

// WinpassVersion hosts the version of the app.
var WinpassVersion = "development"

// Commit is the commit hash of the build
var Commit string

// BuildDate is the date it was built
var BuildDate string

// UserAgent returns the user agent sent with Compute Engine API requests.
func UserAgent() string {
	return "winpass/" + WinpassVersion + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
