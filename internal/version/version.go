// Package version carries build metadata for miraview.
//
// Version, Commit, and Date are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/miraview/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/miraview/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/miraview/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "miraview"

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// shortCommit returns the first 8 characters of Commit, or "" when unknown.
func shortCommit() string {
	if Commit == "unknown" || len(Commit) < 8 {
		return ""
	}
	return Commit[:8]
}

// String returns a human-readable version string.
func String() string {
	info := GetInfo()
	if c := shortCommit(); c != "" {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s, %s)",
			ApplicationName, info.Version, c, info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
}

// Short returns the version for cobra's --version output.
func Short() string {
	if c := shortCommit(); c != "" {
		return fmt.Sprintf("%s (%s)", Version, c)
	}
	return Version
}

// JSON returns the version information as indented JSON.
func JSON() string {
	b, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UserAgent returns the User-Agent sent to mirakc.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ApplicationName, Version)
}
