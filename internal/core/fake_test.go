package core

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
)

// fakeSession records every call. failOn decides per statement whether
// it fails.
type fakeSession struct {
	dialect   commands.Dialect
	execs     []string
	args      [][]any
	queries   []string
	commits   int
	rollbacks int
	closed    bool
	rows      []Row
	affected  int64
	failOn    func(sql string, args []any) error
}

func newFakeSession() *fakeSession {
	return &fakeSession{dialect: commands.Postgres, affected: 1}
}

func (f *fakeSession) Dialect() commands.Dialect { return f.dialect }

func (f *fakeSession) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if f.failOn != nil {
		if err := f.failOn(sql, args); err != nil {
			return 0, err
		}
	}
	return f.affected, nil
}

func (f *fakeSession) Query(_ context.Context, sql string, args ...any) ([]database.Row, error) {
	f.queries = append(f.queries, sql)
	if f.failOn != nil {
		if err := f.failOn(sql, args); err != nil {
			return nil, err
		}
	}
	return f.rows, nil
}

func (f *fakeSession) Commit(context.Context) error   { f.commits++; return nil }
func (f *fakeSession) Rollback(context.Context) error { f.rollbacks++; return nil }
func (f *fakeSession) Close(context.Context) error    { f.closed = true; return nil }

// countExecs returns how many executed statements contain substr.
func (f *fakeSession) countExecs(substr string) int {
	n := 0
	for _, s := range f.execs {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

// stringSource serves fixed CSV text.
type stringSource struct {
	name string
	data string
	err  error
}

func (s stringSource) Name() string { return s.name }

func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.data)), nil
}

// failingReader returns data, then err.
type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func (r *failingReader) Close() error { return nil }

type brokenSource struct {
	data string
	err  error
}

func (s brokenSource) Name() string { return "broken.csv" }

func (s brokenSource) Open(context.Context) (io.ReadCloser, error) {
	return &failingReader{data: s.data, err: s.err}, nil
}

const csvHeader = "transaction_id,transaction_date,product_name,price,store_name,sales_representative_name,client_name\n"

func mustRegistry(d commands.Dialect) *commands.Registry {
	reg, err := commands.New(d)
	if err != nil {
		panic(err)
	}
	return reg
}
