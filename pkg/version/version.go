// Package version exposes build information stamped in at link time.
package version

import "runtime/debug"

// Version is the release tag, set with -ldflags "-X .../pkg/version.Version=v1.2.3".
var Version = "dev"

// Commit is the Git hash of the binary which is executing.
var Commit = "<unknown>"

// String renders the version and commit. Builds without a stamped commit
// fall back to the VCS revision recorded by the Go toolchain.
func String() string {
	commit := Commit

	if commit == "<unknown>" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
				}
			}
		}
	}

	return Version + " (" + commit + ")"
}
