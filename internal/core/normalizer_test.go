package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/transactions/internal/commands"
)

func TestNormalizer_OrderAndIndependentCommits(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(sql string, _ []any) error {
		if strings.Contains(sql, "INSERT INTO clients") {
			return errors.New("deadlock detected")
		}
		return nil
	}

	results := NewNormalizer(mustRegistry(commands.Postgres), nil).Populate(context.Background(), sess)

	var keys []string
	for _, r := range results {
		keys = append(keys, r.Key)
	}
	want := "insert_stores,insert_sales_representatives,insert_clients,insert_products,insert_transactions"
	if strings.Join(keys, ",") != want {
		t.Errorf("order = %v", keys)
	}

	failed := Failed(results)
	if len(failed) != 1 || failed[0].Key != commands.KeyInsertClients {
		t.Errorf("failed = %+v", failed)
	}
	if sess.commits != 4 {
		t.Errorf("commits = %d, want 4 (one per successful step)", sess.commits)
	}
	if len(sess.execs) != 5 {
		t.Errorf("statements = %d, want 5", len(sess.execs))
	}
}

func TestCorrector_Apply(t *testing.T) {
	sess := newFakeSession()
	sess.affected = 3

	n, err := NewCorrector(mustRegistry(commands.Postgres), nil).Apply(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || sess.commits != 1 {
		t.Errorf("rows = %d, commits = %d", n, sess.commits)
	}
	if !strings.Contains(sess.execs[0], "UPDATE transactions_temp") {
		t.Errorf("statement = %q", sess.execs[0])
	}
}

func TestCorrector_FailureNotCommitted(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(string, []any) error { return errors.New("boom") }

	_, err := NewCorrector(mustRegistry(commands.Postgres), nil).Apply(context.Background(), sess)
	if err == nil {
		t.Fatal("Apply() expected error")
	}
	if sess.commits != 0 || len(sess.execs) != 1 {
		t.Errorf("commits = %d, execs = %d", sess.commits, len(sess.execs))
	}
}
