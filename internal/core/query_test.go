package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/errs"
)

var kingStCappuccino = map[string]string{ParamStoreName: "King St", ParamProductName: "cappuccino"}

func TestRunQuery_UnknownKey(t *testing.T) {
	sess := newFakeSession()
	q := NewQueryExecutor(mustRegistry(commands.Postgres), nil)

	if rows := q.Run(context.Background(), sess, "get_everything", kingStCappuccino); len(rows) != 0 {
		t.Errorf("Run() = %v, want empty", rows)
	}
	if len(sess.queries)+len(sess.execs) != 0 {
		t.Error("a statement was executed for an unknown key")
	}

	_, err := q.RunE(context.Background(), sess, "get_everything", kingStCappuccino)
	if !errs.Is(err, errs.KindQueryKeyNotFound) {
		t.Errorf("RunE() error = %v, want QueryKeyNotFound", err)
	}
}

func TestRunQuery_NonReportKeyRefused(t *testing.T) {
	sess := newFakeSession()
	q := NewQueryExecutor(mustRegistry(commands.Postgres), nil)

	_, err := q.RunE(context.Background(), sess, commands.KeyInsertStores, nil)
	if !errs.Is(err, errs.KindQueryKeyNotFound) {
		t.Errorf("RunE() error = %v, want QueryKeyNotFound", err)
	}
	if len(sess.queries) != 0 {
		t.Error("load statement executed as a report")
	}
}

func TestRunQuery_BindsFilters(t *testing.T) {
	sess := newFakeSession()
	sess.rows = []Row{{int64(1), "Bob", "2024-01-15"}, {int64(2), "Cy", "2024-01-16"}}
	q := NewQueryExecutor(mustRegistry(commands.Postgres), nil)

	rows := q.Run(context.Background(), sess, commands.KeyGetCustomers, kingStCappuccino)
	if !reflect.DeepEqual(rows, sess.rows) {
		t.Errorf("Run() = %v, want %v", rows, sess.rows)
	}
	if len(sess.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(sess.queries))
	}
	if got := sess.queries[0]; !containsAll(got, "s.name = $1", "p.name = $2") {
		t.Errorf("statement not bound: %q", got)
	}
}

func TestRunQuery_FailureReturnsEmpty(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(string, []any) error { return errors.New("relation does not exist") }
	q := NewQueryExecutor(mustRegistry(commands.Postgres), nil)

	if rows := q.Run(context.Background(), sess, commands.KeyGetCustomersSort, kingStCappuccino); rows != nil {
		t.Errorf("Run() = %v, want nil", rows)
	}
	_, err := q.RunE(context.Background(), sess, commands.KeyGetCustomersSort, kingStCappuccino)
	if !errs.Is(err, errs.KindStatementFailure) {
		t.Errorf("RunE() error = %v, want StatementFailure", err)
	}
}

func TestRunQuery_MissingParam(t *testing.T) {
	sess := newFakeSession()
	q := NewQueryExecutor(mustRegistry(commands.Postgres), nil)

	_, err := q.RunE(context.Background(), sess, commands.KeyGetCustomers, map[string]string{ParamStoreName: "King St"})
	if !errs.Is(err, errs.KindStatementFailure) {
		t.Errorf("RunE() error = %v, want StatementFailure", err)
	}
	if len(sess.queries) != 0 {
		t.Error("statement executed with a missing parameter")
	}
}

func TestReports(t *testing.T) {
	q := NewQueryExecutor(mustRegistry(commands.SQLite), nil)
	want := []string{"get_customers", "get_customers_sort", "get_customers_sort_optim"}
	if got := q.Reports(); !reflect.DeepEqual(got, want) {
		t.Errorf("Reports() = %v, want %v", got, want)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
