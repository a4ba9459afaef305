// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity persists the device UUID reported in every record.
//
// The UUID is generated once per installation and kept in a small text
// file. Regenerating it would split one device's history across two
// identities on the collection server, so a damaged file is reported
// as an error instead of being replaced.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LoadOrCreate returns the UUID stored at path, creating the file with
// a new random (version 4) UUID if it does not exist.
func LoadOrCreate(path string) (uuid.UUID, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return uuid.Nil, err
	}

	id, err = uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity: generating uuid: %w", err)
	}
	if err := writeAtomic(path, []byte(id.String()+"\n")); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Load reads the UUID stored at path. A missing file returns an error
// wrapping fs.ErrNotExist.
func Load(path string) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity: %w", err)
	}
	id, err := uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity: %s is corrupt: %w", path, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("identity: %s holds the nil uuid", path)
	}
	return id, nil
}

// writeAtomic writes data to a temporary file in the target directory
// and renames it into place, so readers see either no file or a
// complete one.
func writeAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("identity: creating %s: %w", directory, err)
	}
	temporary, err := os.CreateTemp(directory, ".uuid-*")
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("identity: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("identity: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("identity: closing %s: %w", temporaryPath, err)
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("identity: installing %s: %w", path, err)
	}
	return nil
}
