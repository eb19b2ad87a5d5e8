// Package version carries build metadata injected with -ldflags.
package version

import "runtime/debug"

// Build metadata, set with -ldflags "-X github.com/Sumatoshi-tech/gitscm/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// Info is the build metadata as a value.
type Info struct {
	Version   string `json:"version"   yaml:"version"`
	Commit    string `json:"commit"    yaml:"commit"`
	Date      string `json:"date"      yaml:"date"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

// Get returns the build metadata. A binary built without ldflags reports the
// VCS revision recorded by the Go toolchain, when present.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = build.GoVersion

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "<unknown>" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.Date == "<unknown>" {
				info.Date = setting.Value
			}
		}
	}

	return info
}
