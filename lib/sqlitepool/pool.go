// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite connection pool behind the local
// record store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the same
// pragmas to every connection: WAL journaling so the retry sweep can
// read while an observation is being inserted, a busy timeout instead
// of immediate SQLITE_BUSY, and a modest page cache sized for a phone
// or small edge device rather than a server.
//
// Callers Take a connection, do their work, and Put it back.
// Connections are not safe for concurrent use.
package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a pool. Path is required.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is the number of connections. Defaults to 2: the store
	// has one writer at a time and at most one concurrent sweep read.
	PoolSize int

	// Durable selects synchronous=FULL, which survives power loss at
	// the cost of an fsync per commit. The default, NORMAL, survives
	// process crashes. Both keep every transaction atomic.
	Durable bool

	// Logger receives open/close messages. Nil discards them.
	Logger *slog.Logger

	// OnConnect runs once per connection after the pragmas, typically
	// to create the schema.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size pool of prepared SQLite connections.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open creates the pool. Connections are prepared lazily on first Take,
// so schema errors from OnConnect surface from Take.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	synchronous := "NORMAL"
	if cfg.Durable {
		synchronous = "FULL"
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, synchronous, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"synchronous", synchronous,
	)

	return &Pool{inner: inner, logger: logger, path: cfg.Path}, nil
}

// Take borrows a connection, blocking until one is free or ctx ends.
// The caller must Put it back.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Nil is a no-op.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes every connection, blocking until borrowed connections
// are returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

func prepareConnection(conn *sqlite.Conn, synchronous string, onConnect func(*sqlite.Conn) error) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=" + synchronous,
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-2048",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
