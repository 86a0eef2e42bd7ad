package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/errs"
)

func TestCreateTables_AlreadyExistsAndFailures(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(sql string, _ []any) error {
		switch {
		case strings.Contains(sql, "TABLE IF NOT EXISTS clients"):
			return &pgconn.PgError{Code: "42P07", Message: `relation "clients" already exists`}
		case strings.Contains(sql, "TABLE IF NOT EXISTS products"):
			return errors.New("permission denied")
		}
		return nil
	}

	initializer := NewInitializer(mustRegistry(commands.Postgres), nil)
	results := initializer.CreateTables(context.Background(), sess)

	if len(sess.execs) != 6 {
		t.Errorf("table statements = %d, want 6", len(sess.execs))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Key != "table_create_products" {
		t.Errorf("failed = %+v, want only products", failed)
	}
	if !errs.Is(failed[0].Err, errs.KindStatementFailure) {
		t.Errorf("failure kind = %v", errs.KindOf(failed[0].Err))
	}
	if sess.commits != 1 {
		t.Errorf("commits = %d, want 1", sess.commits)
	}
	// Later tables still ran after the failure.
	if !strings.Contains(sess.execs[5], "transactions_temp") {
		t.Errorf("last statement = %q", sess.execs[5])
	}
}

func TestCreateDatabase(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"created", nil, false},
		{"already exists", &pgconn.PgError{Code: "42P06"}, false},
		{"other failure", errors.New("permission denied"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			sess.failOn = func(string, []any) error { return tt.err }

			initializer := NewInitializer(mustRegistry(commands.Postgres), nil)
			err := initializer.CreateDatabase(context.Background(), sess, "transactions")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateDatabase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if sess.execs[0] != `CREATE SCHEMA "transactions"` {
				t.Errorf("statement = %q", sess.execs[0])
			}
		})
	}
}

func TestUseDatabase_QuotesName(t *testing.T) {
	sess := newFakeSession()
	initializer := NewInitializer(mustRegistry(commands.Postgres), nil)

	if err := initializer.UseDatabase(context.Background(), sess, `x"; DROP SCHEMA public; --`); err != nil {
		t.Fatal(err)
	}
	if sess.execs[0] != `SET search_path TO "x""; DROP SCHEMA public; --"` {
		t.Errorf("statement = %q", sess.execs[0])
	}
}

func TestNamespace_SkippedOnSQLite(t *testing.T) {
	sess := newFakeSession()
	sess.dialect = commands.SQLite
	initializer := NewInitializer(mustRegistry(commands.SQLite), nil)

	if err := initializer.CreateDatabase(context.Background(), sess, "transactions"); err != nil {
		t.Errorf("CreateDatabase() error = %v", err)
	}
	if err := initializer.UseDatabase(context.Background(), sess, "transactions"); err != nil {
		t.Errorf("UseDatabase() error = %v", err)
	}
	if len(sess.execs) != 0 {
		t.Errorf("statements = %v, want none", sess.execs)
	}
}

func TestCheckDatabase(t *testing.T) {
	tests := []struct {
		name    string
		rows    []Row
		wantErr bool
	}{
		{"present", []Row{{int64(1)}}, false},
		{"missing", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			sess.rows = tt.rows
			initializer := NewInitializer(mustRegistry(commands.Postgres), nil)

			err := initializer.CheckDatabase(context.Background(), sess, "transactions")
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckDatabase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errs.Is(err, errs.KindStatementFailure) {
				t.Errorf("error kind = %v", errs.KindOf(err))
			}
			if len(sess.queries) != 1 || !strings.Contains(sess.queries[0], "nspname = $1") {
				t.Errorf("queries = %v", sess.queries)
			}
		})
	}
}

func TestCheckDatabase_SkippedOnSQLite(t *testing.T) {
	sess := newFakeSession()
	sess.dialect = commands.SQLite
	initializer := NewInitializer(mustRegistry(commands.SQLite), nil)

	if err := initializer.CheckDatabase(context.Background(), sess, "transactions"); err != nil {
		t.Errorf("CheckDatabase() error = %v", err)
	}
	if len(sess.queries) != 0 {
		t.Errorf("queries = %v, want none", sess.queries)
	}
}
