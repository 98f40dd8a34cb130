// Package version reports the tasfleet build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/tasfleet/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/tasfleet/internal/version.Commit=abc1234"
//
// Unset values come from the module's VCS build settings, then fall back to
// "dev" and "unknown".
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary
type Info struct {
	Version   string
	Commit    string
	GoVersion string
	Platform  string
}

var resolveOnce sync.Once

// Get returns the build information, resolving missing values once
func Get() Info {
	resolveOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			Version, Commit = fromBuildSettings(Version, Commit, info.Settings)
		}
		if Version == "" {
			Version = "dev"
		}
		if Commit == "" {
			Commit = "unknown"
		}
	})

	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// fromBuildSettings fills an empty version or commit from vcs.* settings
func fromBuildSettings(version, commit string, settings []debug.BuildSetting) (string, string) {
	var revision, modified, vcsTime string
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if commit == "" && revision != "" {
		commit = revision[:min(len(revision), 7)]
		if modified == "true" {
			commit += "-dirty"
		}
	}

	// Build info carries no tags, so the best we can do is a dated dev version
	if version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			version = "dev-" + t.Format("20060102")
		}
	}

	return version, commit
}

// String returns a one-line version description
func (i Info) String() string {
	return fmt.Sprintf("tasfleet %s (commit: %s, %s, %s)", i.Version, i.Commit, i.GoVersion, i.Platform)
}

// Full returns the version and commit
func Full() string {
	info := Get()
	return fmt.Sprintf("%s (commit: %s)", info.Version, info.Commit)
}
