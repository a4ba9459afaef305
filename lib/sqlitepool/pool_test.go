// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/compscidr/awm-lib/lib/sqlitepool"
)

func TestOpenAppliesPragmas(t *testing.T) {
	tests := []struct {
		name            string
		durable         bool
		wantSynchronous int
	}{
		{name: "normal", durable: false, wantSynchronous: 1},
		{name: "durable", durable: true, wantSynchronous: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pool := openTestPool(t, test.durable, nil)

			conn, err := pool.Take(context.Background())
			if err != nil {
				t.Fatalf("Take: %v", err)
			}
			defer pool.Put(conn)

			if got := pragmaText(t, conn, "PRAGMA journal_mode"); got != "wal" {
				t.Errorf("journal_mode = %q, want wal", got)
			}
			var synchronous int
			err = sqlitex.Execute(conn, "PRAGMA synchronous", &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					synchronous = stmt.ColumnInt(0)
					return nil
				},
			})
			if err != nil {
				t.Fatalf("PRAGMA synchronous: %v", err)
			}
			if synchronous != test.wantSynchronous {
				t.Errorf("synchronous = %d, want %d", synchronous, test.wantSynchronous)
			}
		})
	}
}

func TestOnConnectCreatesSchema(t *testing.T) {
	var called bool
	pool := openTestPool(t, false, func(conn *sqlite.Conn) error {
		called = true
		return sqlitex.ExecuteScript(conn, `
			CREATE TABLE IF NOT EXISTS samples (
				id    INTEGER PRIMARY KEY,
				value TEXT NOT NULL
			);
		`, nil)
	})

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	if !called {
		t.Fatal("OnConnect was not called")
	}
	err = sqlitex.Execute(conn, "INSERT INTO samples (value) VALUES (?)", &sqlitex.ExecOptions{
		Args: []any{"hello"},
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestTakeWithCancelledContext(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "cancel.db"),
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("expected error from cancelled context with the only connection borrowed")
	}

	pool.Put(conn)
}

func openTestPool(t *testing.T, durable bool, onConnect func(*sqlite.Conn) error) *sqlitepool.Pool {
	t.Helper()

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		Durable:   durable,
		OnConnect: onConnect,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func pragmaText(t *testing.T, conn *sqlite.Conn, pragma string) string {
	t.Helper()
	var value string
	err := sqlitex.Execute(conn, pragma, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("%s: %v", pragma, err)
	}
	return value
}
