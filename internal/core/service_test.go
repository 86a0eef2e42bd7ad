package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/source"
)

// These tests run the real registry SQL against an in-process SQLite
// database.

const sampleCSV = csvHeader +
	"T1,2024-01-10, cappuccino ,4.00,King St,Alice,Bob\n" +
	"T2,2024-01-12,espresso,3.00,King St,Alice,Bob\n" +
	"T3,2024-01-11,cappuccino,4.00,King St,Dan,Cy\n" +
	"T4,2024-01-13,cappuccino,4.00,Queen St,Dan,Bob\n" +
	"T5,13/01/2024,latte,5.00,Queen St,Dan,Bob\n"

func sqliteSession(t *testing.T) database.Session {
	t.Helper()
	sess, err := database.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { sess.Close(context.Background()) })
	return sess
}

func writeCSV(t *testing.T, data string) source.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return source.File(path)
}

func tableCount(t *testing.T, sess database.Session, table string) int64 {
	t.Helper()
	rows, err := sess.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return rows[0][0].(int64)
}

func asDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format(time.DateOnly)
	case string:
		return d
	default:
		return fmt.Sprint(v)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return -1
	}
}

func setupAndUpload(t *testing.T, sess database.Session, svc *Service) UploadResult {
	t.Helper()
	ctx := context.Background()

	results, err := svc.Setup(ctx, sess, "transactions")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("Setup() failed steps = %+v", failed)
	}

	res, err := svc.Upload(ctx, sess, "transactions", writeCSV(t, sampleCSV))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	return res
}

func TestService_UploadSQLite(t *testing.T) {
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)

	res := setupAndUpload(t, sess, svc)

	if res.Staging.Staged != 4 || res.Staging.Skipped != 1 {
		t.Errorf("staging = %+v", res.Staging)
	}
	if res.Corrected != 3 || res.CorrectErr != nil {
		t.Errorf("corrected = %d (%v), want 3", res.Corrected, res.CorrectErr)
	}
	if failed := Failed(res.Steps); len(failed) != 0 {
		t.Fatalf("normalize failures = %+v", failed)
	}

	want := map[string]int64{
		"stores":                2,
		"sales_representatives": 2,
		"clients":               2,
		"products":              3,
		"transactions":          4,
	}
	for table, n := range want {
		if got := tableCount(t, sess, table); got != n {
			t.Errorf("%s = %d, want %d", table, got, n)
		}
	}

	rows, err := sess.Query(context.Background(), "SELECT price FROM products WHERE name = 'cappuccino'")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if asFloat(r[0]) != 4.5 {
			t.Errorf("corrected cappuccino price = %v, want 4.5", r[0])
		}
	}
}

func TestService_NormalizeTwiceAddsNothing(t *testing.T) {
	ctx := context.Background()
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)

	setupAndUpload(t, sess, svc)

	tables := []string{"stores", "sales_representatives", "clients", "products", "transactions"}
	before := make(map[string]int64)
	for _, table := range tables {
		before[table] = tableCount(t, sess, table)
	}

	steps := svc.Normalizer.Populate(ctx, sess)
	for _, s := range steps {
		if s.Err != nil {
			t.Errorf("%s failed on re-run: %v", s.Key, s.Err)
		}
		if s.RowsAffected != 0 {
			t.Errorf("%s inserted %d rows on re-run", s.Key, s.RowsAffected)
		}
	}

	// A second upload of the same file stages nothing new either.
	if _, err := svc.Upload(ctx, sess, "transactions", writeCSV(t, sampleCSV)); err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}
	for _, table := range tables {
		if got := tableCount(t, sess, table); got != before[table] {
			t.Errorf("%s = %d after re-run, want %d", table, got, before[table])
		}
	}
}

func TestService_Reports(t *testing.T) {
	ctx := context.Background()
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)
	setupAndUpload(t, sess, svc)

	params := map[string]string{ParamStoreName: "King St", ParamProductName: "cappuccino"}

	// Bob's latest King St visit was for espresso, so only Cy qualifies.
	rows, err := svc.Query(ctx, sess, "transactions", commands.KeyGetCustomers, params)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "Cy" || asDate(rows[0][2]) != "2024-01-11" {
		t.Errorf("get_customers = %v", rows)
	}

	for _, key := range []string{commands.KeyGetCustomersSort, commands.KeyGetCustomersSortFast} {
		rows, err := svc.Query(ctx, sess, "transactions", key, params)
		if err != nil {
			t.Fatalf("Query(%s) error = %v", key, err)
		}
		if len(rows) != 1 || rows[0][1] != "Cy" {
			t.Fatalf("%s = %v", key, rows)
		}
		if total := asFloat(rows[0][3]); total != 4.5 {
			t.Errorf("%s total_spent = %v, want 4.5", key, rows[0][3])
		}
	}

	rows, err = svc.Query(ctx, sess, "transactions", commands.KeyGetCustomers,
		map[string]string{ParamStoreName: "Queen St", ParamProductName: "cappuccino"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][1] != "Bob" || asDate(rows[0][2]) != "2024-01-13" {
		t.Errorf("Queen St get_customers = %v", rows)
	}
}

func TestService_FilterIsNotInterpolated(t *testing.T) {
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)
	setupAndUpload(t, sess, svc)

	rows, err := svc.Query(context.Background(), sess, "transactions", commands.KeyGetCustomers,
		map[string]string{ParamStoreName: "x' OR '1'='1", ParamProductName: "cappuccino"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("injected filter matched %d rows", len(rows))
	}
}

func TestService_UploadMissingSource(t *testing.T) {
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)

	res, err := svc.Upload(context.Background(), sess, "transactions", source.File(filepath.Join(t.TempDir(), "nope.csv")))
	if !errs.Is(err, errs.KindSourceUnavailable) {
		t.Fatalf("Upload() error = %v, want SourceUnavailable", err)
	}
	if res.Steps != nil {
		t.Error("normalization ran after the source failed")
	}
}

func TestService_SetupTwice(t *testing.T) {
	sess := sqliteSession(t)
	svc := NewService(mustRegistry(commands.SQLite), nil, 0)

	for i := 0; i < 2; i++ {
		results, err := svc.Setup(context.Background(), sess, "transactions")
		if err != nil || len(Failed(results)) != 0 {
			t.Fatalf("Setup() run %d: %v %+v", i+1, err, Failed(results))
		}
	}
}

func TestService_SetupUseDatabaseFailure(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(sql string, _ []any) error {
		if len(sql) >= 3 && sql[:3] == "SET" {
			return fmt.Errorf("schema does not exist")
		}
		return nil
	}
	sess.rows = []Row{{int64(1)}}
	svc := NewService(mustRegistry(commands.Postgres), nil, 0)

	if _, err := svc.Setup(context.Background(), sess, "transactions"); err == nil {
		t.Fatal("Setup() expected error")
	}
	if sess.countExecs("CREATE TABLE") != 0 {
		t.Error("tables created after use_database failed")
	}
}

func TestService_SetupMissingDatabase(t *testing.T) {
	sess := newFakeSession()
	sess.failOn = func(sql string, _ []any) error {
		if strings.HasPrefix(sql, "CREATE SCHEMA") {
			return fmt.Errorf("permission denied for database postgres")
		}
		return nil
	}
	svc := NewService(mustRegistry(commands.Postgres), nil, 0)

	_, err := svc.Setup(context.Background(), sess, "transactions")
	if !errs.Is(err, errs.KindStatementFailure) {
		t.Fatalf("Setup() error = %v, want StatementFailure", err)
	}
	if !strings.Contains(err.Error(), `database "transactions" does not exist`) {
		t.Errorf("Setup() error = %v", err)
	}
	if sess.countExecs("SET search_path") != 0 || sess.countExecs("CREATE TABLE") != 0 {
		t.Errorf("statements ran after the missing database: %v", sess.execs)
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(errs.Connectivity("connect", nil)) {
		t.Error("connectivity should be fatal")
	}
	if Fatal(errs.Statement("insert_data", "insert_stores", nil)) {
		t.Error("statement failure should not be fatal")
	}
}
