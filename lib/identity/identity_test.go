// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoadOrCreateIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "uuid.dat")

	first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if first.Version() != 4 {
		t.Errorf("generated uuid version = %d, want 4", first.Version())
	}

	second, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}
	if first != second {
		t.Fatalf("uuid changed across loads: %s then %s", first, second)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestLoadAcceptsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid.dat")
	want := uuid.MustParse("5f1e2d3c-4b5a-4697-8877-665544332211")
	if err := os.WriteFile(path, []byte("  "+want.String()+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if got != want {
		t.Fatalf("LoadOrCreate = %s, want %s", got, want)
	}
}

func TestCorruptFileIsNotReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid.dat")
	if err := os.WriteFile(path, []byte("not-a-uuid"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("LoadOrCreate succeeded on a corrupt file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "not-a-uuid" {
		t.Fatalf("corrupt file was overwritten with %q", data)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load(missing) = %v, want fs.ErrNotExist", err)
	}
}

func TestNilUUIDIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid.dat")
	if err := os.WriteFile(path, []byte(uuid.Nil.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted the nil uuid")
	}
}
