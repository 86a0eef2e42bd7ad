// Package database opens sessions against the configured engine.
//
// A Session is a single connection with a lazily opened unit of work.
// Every statement runs under its own savepoint, so a failed statement is
// rolled back alone and later statements in the same unit still apply.
// Nothing is durable until Commit.
package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/transactions/internal/commands"
)

// Row is one result tuple, in select-list order.
type Row []any

// Session is a singly-owned database connection.
type Session interface {
	Dialect() commands.Dialect

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query runs a statement and returns every row in order.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// Commit makes the current unit of work durable. A commit with no
	// pending statements is a no-op.
	Commit(ctx context.Context) error

	// Rollback discards the current unit of work. A no-op when nothing is
	// pending.
	Rollback(ctx context.Context) error

	// Close discards any uncommitted work and releases the connection.
	Close(ctx context.Context) error
}

// SQLSTATE codes for objects that already exist.
var alreadyExistsCodes = map[string]bool{
	"42P04": true, // duplicate_database
	"42P06": true, // duplicate_schema
	"42P07": true, // duplicate_table
	"42710": true, // duplicate_object
}

// IsAlreadyExists reports whether err means the object being created is
// already there.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return alreadyExistsCodes[pgErr.Code]
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
