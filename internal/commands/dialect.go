package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect identifies the SQL engine a registry targets.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the driver names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want postgres or sqlite)", s)
	}
}

// Placeholder returns the bind placeholder for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// QuoteIdentifier quotes a database or table name. Both engines accept
// standard double-quoted identifiers.
func (d Dialect) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// HasNamespaces reports whether the engine supports create/use of a named
// database. An SQLite file is its own database.
func (d Dialect) HasNamespaces() bool {
	return d == Postgres
}
