// Package buildinfo holds version information stamped in with -ldflags:
//
//	go build -ldflags "-X github.com/YoshitsuguKoike/gba/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/YoshitsuguKoike/gba/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
)

// GetVersion returns the stamped version, falling back to the module
// version recorded by `go install`, then "dev"
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// GetCommit returns the stamped commit, or the VCS revision recorded by the toolchain
func GetCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}
