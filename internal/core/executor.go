package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// executor runs registry statements by key. Every pipeline component
// embeds one.
type executor struct {
	reg     *commands.Registry
	metrics *metrics.Metrics
}

// exec runs sql on behalf of key and records the outcome. Failures come
// back as StatementFailure errors.
func (e executor) exec(ctx context.Context, sess database.Session, op, key, sql string, args ...any) (int64, error) {
	start := time.Now()
	n, err := sess.Exec(ctx, sql, args...)
	e.metrics.ObserveStatement(key, time.Since(start).Seconds(), err)
	if err != nil {
		return 0, errs.Statement(op, key, err)
	}
	return n, nil
}

// execKey looks key up and runs its template unchanged.
func (e executor) execKey(ctx context.Context, sess database.Session, op, key string) (int64, error) {
	tmpl, err := e.reg.Template(key)
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, sess, op, key, tmpl)
}

// commit wraps a failed commit as a StatementFailure of op.
func commit(ctx context.Context, sess database.Session, op string) error {
	if err := sess.Commit(ctx); err != nil {
		return errs.Statement(op, "commit", err)
	}
	return nil
}
