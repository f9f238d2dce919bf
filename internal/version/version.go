// Package version reports the build identity of stratus.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/stratus/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/stratus/internal/version.Commit=abc123
//	  -X github.com/soyeahso/stratus/internal/version.Date=2026-01-01"
//
// Binaries built with `go install` carry no ldflags; the module version and
// VCS stamp from the embedded build info fill in what is left unset.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var fillOnce sync.Once

func fill() {
	fillOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fromBuildInfo(bi)
	})
}

func fromBuildInfo(bi *debug.BuildInfo) {
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// Info returns the full version line printed by `stratus version`.
func Info() string {
	fill()
	return fmt.Sprintf("stratus %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// CTCP returns the reply sent for CTCP VERSION requests.
func CTCP() string {
	fill()
	return fmt.Sprintf("stratus %s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
