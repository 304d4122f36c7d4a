// Package version reports the rscan build. Release builds stamp Version with
//
//	go build -ldflags "-X rscan/cli/internal/version.Version=v0.3.0"
//
// and development builds may stamp Commit. Without stamps the module
// version recorded by the Go toolchain is used when there is one.
package version

import "runtime/debug"

// Version is the release tag, or "dev".
var Version = "dev"

// Commit is a short commit hash for development builds.
var Commit = ""

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// String returns the version for --version and report headers: a release
// tag as is, "dev (abc1234)" for a stamped development build, or the main
// module version from the build info.
func String() string {
	if Version != "dev" {
		return Version
	}
	if Commit != "" {
		return Version + " (" + Commit + ")"
	}
	if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return Version
}
