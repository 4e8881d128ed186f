// Package version reports the build of the recode binaries.
package version

import "runtime/debug"

// Set with -ldflags "-X github.com/MeKo-Tech/recode/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the version, commit and build date. Without ldflags the
// commit and date come from the VCS stamp of the Go build, when present.
func Info() (string, string, string) {
	commit, date := GitCommit, BuildDate
	if commit != "unknown" {
		return Version, commit, date
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				commit = s.Value
			case "vcs.time":
				if date == "unknown" {
					date = s.Value
				}
			}
		}
	}
	return Version, commit, date
}
