package core

import (
	"context"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// loadOrder is parents first: facts reference every dimension, and
// products reference their store.
var loadOrder = []string{
	commands.KeyInsertStores,
	commands.KeyInsertSalesReps,
	commands.KeyInsertClients,
	commands.KeyInsertProducts,
	commands.KeyInsertTransactions,
}

// Normalizer moves staged rows into the dimension and fact tables.
type Normalizer struct {
	executor
}

// NewNormalizer returns a Normalizer over reg.
func NewNormalizer(reg *commands.Registry, m *metrics.Metrics) *Normalizer {
	return &Normalizer{executor{reg: reg, metrics: m}}
}

// Populate runs each insert step and commits it on its own. A failed step
// is logged and recorded, and later steps still run. Every statement only
// inserts rows that are not there yet, so running Populate again adds
// nothing.
func (n *Normalizer) Populate(ctx context.Context, sess database.Session) []StepResult {
	const op = "insert_data"
	logger := logging.FromContext(ctx)
	logger.Info(op + ".start")

	results := make([]StepResult, 0, len(loadOrder))
	for _, key := range loadOrder {
		logger.Info(op, "running", key)

		rows, err := n.execKey(ctx, sess, op, key)
		if err == nil {
			err = commit(ctx, sess, op)
		} else {
			// The failed statement is already rolled back to its
			// savepoint; close out the unit so the next step starts clean.
			_ = sess.Rollback(ctx)
		}
		if err != nil {
			logger.Error(op+".error", "key", key, "error", err)
		}
		results = append(results, StepResult{Key: key, RowsAffected: rows, Err: err})
	}

	logger.Info(op+".end", "failed", len(Failed(results)))
	return results
}
