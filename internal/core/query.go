package core

import (
	"context"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// Report filter parameter names.
const (
	ParamStoreName   = "store_name"
	ParamProductName = "product_name"
)

// QueryExecutor runs named report queries.
type QueryExecutor struct {
	executor
}

// NewQueryExecutor returns a QueryExecutor over reg.
func NewQueryExecutor(reg *commands.Registry, m *metrics.Metrics) *QueryExecutor {
	return &QueryExecutor{executor{reg: reg, metrics: m}}
}

// Reports lists the registered report keys in registry order.
func (q *QueryExecutor) Reports() []string {
	var keys []string
	for _, e := range q.reg.Entries(commands.KindReport) {
		keys = append(keys, e.Key)
	}
	return keys
}

// Run executes the report key with params and returns all rows in order.
// Failures are logged and yield an empty result.
func (q *QueryExecutor) Run(ctx context.Context, sess database.Session, key string, params map[string]string) []Row {
	rows, _ := q.RunE(ctx, sess, key, params)
	return rows
}

// RunE is Run with the failure returned: QueryKeyNotFound for an unknown
// key, StatementFailure when binding or execution fails.
func (q *QueryExecutor) RunE(ctx context.Context, sess database.Session, key string, params map[string]string) ([]Row, error) {
	const op = "run_query"
	logger := logging.WithFields(ctx, "query_key", key,
		ParamStoreName, params[ParamStoreName],
		ParamProductName, params[ParamProductName],
	)
	logger.Info(op + ".start")

	tmpl, ok := q.reg.Lookup(key)
	if !ok || commands.KindOf(key) != commands.KindReport {
		err := errs.NotFound(op, key)
		logger.Error(op+".error", "error", "query key not found")
		q.metrics.ObserveQuery(key, err)
		return nil, err
	}

	sql, args, err := q.reg.Bind(tmpl, params)
	if err != nil {
		logger.Error(op+".error", "error", err)
		q.metrics.ObserveQuery(key, err)
		return nil, errs.Statement(op, key, err)
	}
	logger.Debug(op, "statement", commands.Interpolate(tmpl, params))

	rows, err := sess.Query(ctx, sql, args...)
	// Reports only read; end the unit so nothing lingers on the session.
	_ = sess.Rollback(ctx)
	q.metrics.ObserveQuery(key, err)
	if err != nil {
		logger.Error(op+".error", "error", err)
		return nil, errs.Statement(op, key, err)
	}

	logger.Info(op+".end", "rows", len(rows))
	return rows, nil
}
