// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the awm
// collector.
//
// Configuration is loaded from a single file specified by either the
// AWM_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There are no fallbacks and no automatic file search.
// Values in the file overlay [Default]; omitted fields keep their
// defaults.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${AWM_ROOT}, and ${VAR:-default} patterns are expanded. No
// other environment variables override config values.
//
// The production environment tightens validation: the upload endpoint
// must use https.
package config
