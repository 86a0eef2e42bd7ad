// Package commands holds the registry of SQL statements used by the
// transactions pipeline.
//
// A Registry is built once at startup for one dialect and passed to every
// component that needs it. It is read-only after construction, so it can be
// shared freely.
//
//	reg, err := commands.New(commands.Postgres)
//	tmpl, ok := reg.Lookup("insert_stores")
//
// Keys are tagged by prefix, the way the statements are grouped:
//
//	create_database, use_database   positional identifier templates ({})
//	database_exists                 namespace lookup with a {name} filter
//	table_*                         DDL, executed by the schema initializer
//	insert_transactions_temp        staging insert, one row per call
//	update_*                        post-staging corrections
//	insert_*                        dedup-inserts into dimensions and facts
//	get_*                           reports with named filters ({store_name})
package commands

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/transactions/internal/errs"
)

// Kind groups registry entries by what executes them.
type Kind int

const (
	KindDatabase Kind = iota
	KindTable
	KindStaging
	KindCorrection
	KindLoad
	KindReport
	KindOther
)

// Key constants for the statements callers address directly.
const (
	KeyCreateDatabase = "create_database"
	KeyUseDatabase    = "use_database"
	KeyDatabaseExists = "database_exists"
	KeyInsertStaging  = "insert_transactions_temp"
	KeyCorrectStaging = "update_transactions_temp"

	KeyInsertStores         = "insert_stores"
	KeyInsertSalesReps      = "insert_sales_representatives"
	KeyInsertClients        = "insert_clients"
	KeyInsertProducts       = "insert_products"
	KeyInsertTransactions   = "insert_transactions"
	KeyGetCustomers         = "get_customers"
	KeyGetCustomersSort     = "get_customers_sort"
	KeyGetCustomersSortFast = "get_customers_sort_optim"
)

// KindOf derives an entry's kind from its key.
func KindOf(key string) Kind {
	switch {
	case key == KeyCreateDatabase || key == KeyUseDatabase || key == KeyDatabaseExists:
		return KindDatabase
	case strings.HasPrefix(key, "table"):
		return KindTable
	case strings.HasPrefix(key, "insert") && strings.HasSuffix(key, "temp"):
		return KindStaging
	case strings.HasPrefix(key, "update"):
		return KindCorrection
	case strings.HasPrefix(key, "insert"):
		return KindLoad
	case strings.HasPrefix(key, "get"):
		return KindReport
	default:
		return KindOther
	}
}

// Entry is one registered statement.
type Entry struct {
	Key      string
	Template string
}

// Kind returns the entry's kind.
func (e Entry) Kind() Kind {
	return KindOf(e.Key)
}

// Registry is an immutable, ordered mapping from key to SQL template.
type Registry struct {
	dialect Dialect
	entries []Entry
	index   map[string]int
}

// New builds the standard registry for a dialect.
func New(d Dialect) (*Registry, error) {
	switch d {
	case Postgres:
		return NewFromEntries(d, postgresEntries()...)
	case SQLite:
		return NewFromEntries(d, sqliteEntries()...)
	default:
		return nil, fmt.Errorf("no commands for dialect %q", d)
	}
}

// NewFromEntries builds a registry from explicit entries, keeping their order.
// Returns an error on a duplicate or empty key.
func NewFromEntries(d Dialect, entries ...Entry) (*Registry, error) {
	r := &Registry{
		dialect: d,
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("command with empty key")
		}
		if _, exists := r.index[e.Key]; exists {
			return nil, fmt.Errorf("command already registered: %s", e.Key)
		}
		r.index[e.Key] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Dialect returns the dialect the templates are written for.
func (r *Registry) Dialect() Dialect {
	return r.dialect
}

// Lookup returns the template for key. Never panics.
func (r *Registry) Lookup(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.entries[i].Template, true
}

// Template returns the template for key or a QueryKeyNotFound error.
func (r *Registry) Template(key string) (string, error) {
	tmpl, ok := r.Lookup(key)
	if !ok {
		return "", errs.NotFound("lookup", key)
	}
	return tmpl, nil
}

// Entries returns all entries of the given kind in registration order.
func (r *Registry) Entries(kind Kind) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}
