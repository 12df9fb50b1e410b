// File: internal/sqlstore/pool.go
// Author: yoyo-hu
//
// Concrete api.SQLPool over database/sql, driven by the
// go-sql-driver/mysql driver. Sizing follows sql.DB's own pool
// (SetMaxOpenConns/SetMaxIdleConns) rather than reimplementing
// connection pooling, since the original's SqlConnPool is itself a thin
// wrapper over libmysqlclient handles.

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/yoyo-hu/webserver/api"
)

// Pool wraps a *sql.DB as an api.SQLPool.
type Pool struct {
	db *sql.DB
}

var _ api.SQLPool = (*Pool)(nil)

// Open connects to dsn (a go-sql-driver/mysql DSN) and sizes the pool to
// maxOpen connections.
func Open(dsn string, maxOpen int) (*Pool, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if maxOpen <= 0 {
		maxOpen = 8
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	return &Pool{db: db}, nil
}

// QueryRow runs a single-row query and scans the result into dest.
func (p *Pool) QueryRow(ctx context.Context, query string, dest []any, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// Exec runs a statement that does not return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := p.db.ExecContext(ctx, query, args...)
	return err
}

// Stats reports pool utilization for the Control collaborator.
func (p *Pool) Stats() api.SQLPoolStats {
	s := p.db.Stats()
	return api.SQLPoolStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
	}
}

// Close releases pooled connections.
func (p *Pool) Close() error {
	return p.db.Close()
}
