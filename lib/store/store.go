// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the durable local record store: an append-only
// SQLite table of records, each PENDING until the coordinator confirms
// an upload and flips it to UPLOADED.
//
// Every mutation runs in its own IMMEDIATE transaction, so a crash
// leaves either no trace of an insert or a complete PENDING row. Rows
// are never deleted and never move back from UPLOADED to PENDING, which
// keeps count(PENDING) + count(UPLOADED) equal to the number of inserts.
//
// Record bodies (device snapshot and observation) are deterministic
// CBOR, LZ4-compressed when that makes them smaller. The id, state, and
// timestamps are plain columns so the sweep query never decodes rows it
// does not return.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/compscidr/awm-lib/lib/clock"
	"github.com/compscidr/awm-lib/lib/record"
	"github.com/compscidr/awm-lib/lib/sqlitepool"
)

// ErrNotFound is returned by MarkUploaded for an id that was never
// inserted.
var ErrNotFound = errors.New("store: record not found")

// AUTOINCREMENT guarantees ids are never reused, even after a crash
// that rolled back the newest insert.
const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		captured_at INTEGER NOT NULL,
		state       INTEGER NOT NULL DEFAULT 0,
		uploaded_at INTEGER,
		compression INTEGER NOT NULL,
		raw_size    INTEGER NOT NULL,
		body        BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_state ON records(state, id);
`

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	// Durable makes every commit survive power loss, not only process
	// crashes.
	Durable bool

	// Clock stamps uploaded_at. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger

	// OnUndecodable is called for every PENDING row ListPending skips
	// because its body cannot be decoded. Such a row stays PENDING and
	// counted but is never returned, so hosts should surface it.
	OnUndecodable func(id int64, err error)
}

// Store is safe for concurrent use.
type Store struct {
	pool          *sqlitepool.Pool
	clock         clock.Clock
	logger        *slog.Logger
	onUndecodable func(id int64, err error)
}

// Counts is a consistent pair of state counts.
type Counts struct {
	Pending  int64
	Uploaded int64
}

// Total is the number of records ever inserted.
func (c Counts) Total() int64 { return c.Pending + c.Uploaded }

// Open opens or creates the store and verifies the schema.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:    cfg.Path,
		Durable: cfg.Durable,
		Logger:  logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	store := &Store{pool: pool, clock: clk, logger: logger, onUndecodable: cfg.OnUndecodable}

	// Take one connection now so a bad path or schema fails Open
	// instead of the first Insert.
	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	pool.Put(conn)

	return store, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Insert appends rec as a new PENDING record and returns its id. The
// record's ID and State fields are ignored.
func (s *Store) Insert(ctx context.Context, rec record.Record) (id int64, err error) {
	body, tag, rawSize, err := encodeBody(rec)
	if err != nil {
		return 0, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("store: insert: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO records (captured_at, state, compression, raw_size, body)
		 VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				rec.CapturedAt.UnixNano(),
				int(record.Pending),
				int(tag),
				rawSize,
				body,
			},
		})
	if err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

// MarkUploaded flips a PENDING record to UPLOADED. Marking an already
// UPLOADED record succeeds without changing it. An id that was never
// inserted returns ErrNotFound.
func (s *Store) MarkUploaded(ctx context.Context, id int64) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: mark uploaded: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("store: mark uploaded: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`UPDATE records SET state = ?, uploaded_at = ? WHERE id = ? AND state = ?`,
		&sqlitex.ExecOptions{
			Args: []any{int(record.Uploaded), s.clock.Now().UnixNano(), id, int(record.Pending)},
		})
	if err != nil {
		return fmt.Errorf("store: mark uploaded %d: %w", id, err)
	}
	if conn.Changes() > 0 {
		return nil
	}

	// Nothing changed: either already UPLOADED (fine) or unknown.
	var exists bool
	err = sqlitex.Execute(conn, `SELECT 1 FROM records WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("store: mark uploaded %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ListPending returns every PENDING record in insertion order. The
// listing is one SELECT, which in WAL mode reads a single snapshot: a
// concurrent insert is either fully visible or not at all.
//
// A row whose body cannot be decoded is logged, reported to
// OnUndecodable, and skipped; it stays PENDING and counted.
func (s *Store) ListPending(ctx context.Context) ([]record.Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list pending: %w", err)
	}
	defer s.pool.Put(conn)

	var records []record.Record
	err = sqlitex.Execute(conn,
		`SELECT id, captured_at, compression, raw_size, body
		 FROM records WHERE state = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{int(record.Pending)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				// Columns: id(0), captured_at(1), compression(2),
				// raw_size(3), body(4).
				id := stmt.ColumnInt64(0)
				data := make([]byte, stmt.ColumnLen(4))
				stmt.ColumnBytes(4, data)

				body, err := decodeBody(data, compressionTag(stmt.ColumnInt(2)), stmt.ColumnInt(3))
				if err != nil {
					s.logger.Warn("skipping undecodable record", "record_id", id, "error", err)
					if s.onUndecodable != nil {
						s.onUndecodable(id, err)
					}
					return nil
				}
				records = append(records, record.Record{
					ID:          id,
					Device:      body.Device,
					Observation: body.Observation,
					CapturedAt:  time.Unix(0, stmt.ColumnInt64(1)).UTC(),
					State:       record.Pending,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list pending: %w", err)
	}
	return records, nil
}

// Counts returns the pending and uploaded counts from one snapshot.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("store: counts: %w", err)
	}
	defer s.pool.Put(conn)

	var counts Counts
	err = sqlitex.Execute(conn,
		`SELECT COALESCE(SUM(state = ?), 0), COALESCE(SUM(state = ?), 0) FROM records`,
		&sqlitex.ExecOptions{
			Args: []any{int(record.Pending), int(record.Uploaded)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts.Pending = stmt.ColumnInt64(0)
				counts.Uploaded = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return Counts{}, fmt.Errorf("store: counts: %w", err)
	}
	return counts, nil
}

// CountPending returns the number of PENDING records.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	counts, err := s.Counts(ctx)
	return counts.Pending, err
}

// CountUploaded returns the number of UPLOADED records.
func (s *Store) CountUploaded(ctx context.Context) (int64, error) {
	counts, err := s.Counts(ctx)
	return counts.Uploaded, err
}
