// Package storage persists transactions, line items, sync bookkeeping and quota
// events in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/service"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// queryable is implemented by *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStorage implements service.Storage over database/sql. Queries are written
// with ? placeholders and rebound for the active dialect.
type SQLStorage struct {
	db       *sql.DB
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	pgConfig *PostgresConfig
	dialect  dialect
}

var _ service.Storage = (*SQLStorage)(nil)

func newSQLStorage(db *sql.DB, d dialect, logger *slog.Logger) *SQLStorage {
	return &SQLStorage{
		db:      db,
		dialect: d,
		logger:  common.OrDefault(logger),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// DB exposes the underlying pool.
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn inside a database transaction, committing on success.
func withTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
