// Package version reports the build identity of the binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version, Commit and BuildDate are set at build time, e.g.
// go build -ldflags "-X github.com/oukeidos/dualpage/internal/version.Version=0.2.0"
// Commit and BuildDate fall back to the VCS stamp of the build when unset.
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

var readBuildInfo = debug.ReadBuildInfo

func stamp() (commit, date string) {
	commit, date = Commit, BuildDate
	if commit != "" && date != "" {
		return commit, date
	}
	info, ok := readBuildInfo()
	if !ok {
		return orUnknown(commit), orUnknown(date)
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" {
				commit = s.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.time":
			if date == "" {
				date = s.Value
			}
		}
	}
	return orUnknown(commit), orUnknown(date)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Info returns a multi-line version string for CLI output.
func Info() string {
	commit, date := stamp()
	return fmt.Sprintf("dualpage %s\ncommit: %s\nbuild: %s", Version, commit, date)
}

// UserAgent identifies the binary on backend requests.
func UserAgent() string {
	return "dualpage/" + Version
}
