// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoIncludesDirtyMarker(t *testing.T) {
	savedCommit, savedDirty, savedVersion := GitCommit, GitDirty, Version
	t.Cleanup(func() { GitCommit, GitDirty, Version = savedCommit, savedDirty, savedVersion })

	GitCommit, GitDirty, Version = "abc1234", "true", "1.2.3"
	if got := Info(); !strings.HasPrefix(got, "1.2.3 (abc1234-dirty, ") {
		t.Errorf("Info() = %q", got)
	}

	GitDirty = "false"
	if got := Info(); !strings.HasPrefix(got, "1.2.3 (abc1234, ") {
		t.Errorf("Info() = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "2.0.0"
	if got := UserAgent(); got != "awm/2.0.0" {
		t.Errorf("UserAgent() = %q, want awm/2.0.0", got)
	}
	if got := Short(); got != "2.0.0" {
		t.Errorf("Short() = %q", got)
	}
}

func TestFullMentionsPlatform(t *testing.T) {
	got := Full()
	if !strings.Contains(got, "Go: ") || !strings.Contains(got, "Platform: ") {
		t.Errorf("Full() = %q", got)
	}
}
