// Package version reports the TaskKit build version.
// Version variables can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/AltairaLabs/TaskKit/runtime/version.version=1.0.0"
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// devVersion is the default version when not set via ldflags
	devVersion = "dev"
	// shortCommitLen is the length of the short commit hash
	shortCommitLen = 7
	// vcsRevisionKey is the build info key for git commit
	vcsRevisionKey = "vcs.revision"
	// vcsModifiedKey is the build info key for dirty state
	vcsModifiedKey = "vcs.modified"
	// product is the name reported in User-Agent headers
	product = "TaskKit"
)

// Build-time variables - can be overridden with -ldflags
var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// GetVersion returns the current version string.
// Falls back to build info from go modules if version is "dev".
func GetVersion() string {
	if version != devVersion {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return devVersion
}

// IsRelease reports whether the running build carries a semantic version
// rather than a development marker.
func IsRelease() bool {
	v, err := semver.NewVersion(GetVersion())
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}

// UserAgent returns the User-Agent sent to the engine, e.g. "TaskKit/1.2.0".
// Development builds report "TaskKit/dev".
func UserAgent() string {
	v := strings.TrimPrefix(GetVersion(), "v")
	if sv, err := semver.NewVersion(v); err == nil {
		v = sv.String()
	}
	return product + "/" + v
}

func getCommitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey && setting.Value != "" {
			return setting.Value[:min(shortCommitLen, len(setting.Value))]
		}
	}
	return ""
}

func isDirtyFromBuildInfo() bool {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return false
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsModifiedKey && setting.Value == "true" {
			return true
		}
	}
	return false
}

func commit() string {
	if gitCommit != "" {
		return gitCommit
	}
	return getCommitFromBuildInfo()
}

// GetVersionInfo returns the multi-line text printed by "taskworker version".
func GetVersionInfo() string {
	var b strings.Builder

	fmt.Fprintf(&b, "taskworker version %s", GetVersion())

	if c := commit(); c != "" {
		fmt.Fprintf(&b, "\ncommit: %s", c)
	}

	if buildDate != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", buildDate)
	}

	return b.String()
}

// GetBuildInfo returns version details as structured slog attributes.
func GetBuildInfo() []any {
	attrs := []any{
		"version", GetVersion(),
	}

	if c := commit(); c != "" {
		attrs = append(attrs, "commit", c)
	}

	if gitCommit == "" && isDirtyFromBuildInfo() {
		attrs = append(attrs, "dirty", true)
	}

	if buildDate != "" {
		attrs = append(attrs, "built", buildDate)
	}

	return attrs
}
