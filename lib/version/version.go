// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the awm
// binary and the uploader's User-Agent.
//
// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/compscidr/awm-lib/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, the VCS revision recorded by the Go
// toolchain (if any) is used instead.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	commit, dirty := Commit(), ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, dirty, BuildTime)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA, falling back to the toolchain's
// recorded vcs.revision (shortened) when none was injected.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}
	return GitCommit
}

// UserAgent is the User-Agent sent with uploads.
func UserAgent() string {
	return "awm/" + Version
}
