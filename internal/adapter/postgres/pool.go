// Package postgres provides the PostgreSQL adapter: a bounded connection
// pool, the Querier/transaction context pattern, error mapping to domain
// errors, and embedded schema migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
)

// DB wraps pgxpool with a bounded acquire wait. Every operation first
// acquires a session within AcquireTimeout; when the pool stays full past
// that wait the caller receives domain.ErrPoolExhausted instead of
// blocking indefinitely. Sessions are released on every exit path,
// including query failure. Idle connections are health-checked in the
// background by pgxpool at the configured period.
type DB struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewDB creates the bounded pool from DatabaseConfig. It parses the DSN,
// applies pool bounds and the health-check period, and pings the database
// for fail-fast validation.
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool, acquireTimeout: cfg.AcquireTimeout}, nil
}

// Close drains the underlying pool.
func (db *DB) Close() { db.pool.Close() }

// acquire obtains a session, waiting at most acquireTimeout. A timeout of
// the bounded wait maps to domain.ErrPoolExhausted; cancellation of the
// caller's own context passes through untouched.
func (db *DB) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, db.acquireTimeout)
	defer cancel()

	conn, err := db.pool.Acquire(acqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire session (waited %v): %w",
				db.acquireTimeout, domain.ErrPoolExhausted)
		}
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return conn, nil
}

// Exec acquires a session, runs the statement, and releases the session.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	defer conn.Release()

	return conn.Exec(ctx, sql, args...)
}

// Query acquires a session and runs the query. The session is held until
// the returned rows are closed.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &pooledRows{Rows: rows, conn: conn}, nil
}

// QueryRow acquires a session and runs the query. The session is released
// when Scan is called on the returned row. An acquire failure is deferred
// into Scan, matching pgx.Row semantics.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	conn, err := db.acquire(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return &pooledRow{row: conn.QueryRow(ctx, sql, args...), conn: conn}
}

type pooledRows struct {
	pgx.Rows
	conn *pgxpool.Conn
}

func (r *pooledRows) Close() {
	r.Rows.Close()
	if r.conn != nil {
		r.conn.Release()
		r.conn = nil
	}
}

type pooledRow struct {
	row  pgx.Row
	conn *pgxpool.Conn
}

func (r *pooledRow) Scan(dest ...any) error {
	defer r.conn.Release()
	return r.row.Scan(dest...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
