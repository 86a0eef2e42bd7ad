package core

import (
	"context"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// Corrector applies fixed data corrections to the staging table.
type Corrector struct {
	executor
}

// NewCorrector returns a Corrector over reg.
func NewCorrector(reg *commands.Registry, m *metrics.Metrics) *Corrector {
	return &Corrector{executor{reg: reg, metrics: m}}
}

// Apply runs the correction statement once and commits. It returns the
// number of corrected rows. There is no retry.
func (c *Corrector) Apply(ctx context.Context, sess database.Session) (int64, error) {
	const op = "fix_temp_data"
	logger := logging.FromContext(ctx)
	logger.Info(op + ".start")

	n, err := c.execKey(ctx, sess, op, commands.KeyCorrectStaging)
	if err != nil {
		logger.Error(op+".error", "error", err)
		return 0, err
	}
	if err := commit(ctx, sess, op); err != nil {
		logger.Error(op+".error", "error", err)
		return 0, err
	}

	logger.Info(op+".end", "rows", n)
	return n, nil
}
