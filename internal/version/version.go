package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/gorkbot/gork/internal/version.Version=1.0.0
//	  -X github.com/gorkbot/gork/internal/version.Commit=abc123
//	  -X github.com/gorkbot/gork/internal/version.Date=2026-01-01"
//
// Without ldflags, Commit and Date come from the VCS stamp go embeds.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		Commit, Date = fromSettings(bi.Settings, Commit, Date)
	}
}

// fromSettings fills commit and date from vcs build settings, keeping any
// value already set by ldflags. A dirty tree marks the commit.
func fromSettings(settings []debug.BuildSetting, commit, date string) (string, string) {
	var rev, at string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			at = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if commit == "unknown" && rev != "" {
		commit = rev
		if dirty {
			commit += "-dirty"
		}
	}
	if date == "unknown" && at != "" {
		date = at
	}
	return commit, date
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("gork %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies gork to the Evolution API and the model endpoint.
func UserAgent() string {
	return "gork/" + Version + " (+" + short(Commit) + ")"
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
