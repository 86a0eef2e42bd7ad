package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
	"github.com/JonMunkholm/transactions/internal/source"
)

// StagingLoader copies source records into the staging table.
type StagingLoader struct {
	executor

	// MaxBytes caps how much of a source is read. Zero means no cap.
	MaxBytes int64
}

// NewStagingLoader returns a StagingLoader over reg.
func NewStagingLoader(reg *commands.Registry, m *metrics.Metrics, maxBytes int64) *StagingLoader {
	return &StagingLoader{executor: executor{reg: reg, metrics: m}, MaxBytes: maxBytes}
}

// Load stages every parseable record of src, one insert per row, and
// commits the batch once after all rows were attempted. Bad rows are
// logged, counted and skipped.
//
// When src cannot be opened or read to the end the result is a
// SourceUnavailable error and nothing is committed.
func (l *StagingLoader) Load(ctx context.Context, src source.Source, sess database.Session) (BatchSummary, error) {
	const op = "insert_temp_data"
	start := time.Now()
	sum := BatchSummary{RunID: logging.RunID(ctx), Source: src.Name()}
	logger := logging.WithFields(ctx, "file", src.Name())
	logger.Info(op + ".start")

	tmpl, err := l.reg.Template(commands.KeyInsertStaging)
	if err != nil {
		logger.Error(op+".error", "error", err)
		return sum, err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		logger.Error(op+".error", "reading", src.Name(), "error", err)
		return sum, errs.SourceUnavailable(op, src.Name(), err)
	}
	defer rc.Close()

	fail := func(line int, data []string, err error) {
		sum.FailedRows = append(sum.FailedRows, FailedRow{
			Source:     src.Name(),
			LineNumber: line,
			Reason:     err.Error(),
			Data:       data,
		})
	}

	dialect := sess.Dialect()
	for rec, err := range source.Records(source.Wrap(rc, l.MaxBytes)) {
		if err != nil {
			if !source.IsRowError(err) {
				logger.Error(op+".error", "reading", src.Name(), "error", err)
				if rbErr := sess.Rollback(ctx); rbErr != nil {
					logger.Warn(op+".error", "rollback", rbErr)
				}
				sum.Duration = time.Since(start)
				return sum, errs.SourceUnavailable(op, src.Name(), err)
			}
			sum.Read++
			sum.Skipped++
			fail(rec.Line, rec.Raw, errs.RowParse(op, "", err))
			logger.Warn(op+".error", "line", rec.Line, "error", err)
			continue
		}
		sum.Read++

		tx, err := ParseRow(rec)
		if err != nil {
			sum.Skipped++
			fail(rec.Line, rec.Raw, err)
			logger.Warn(op+".error", "line", rec.Line, "error", err)
			continue
		}

		logger.Debug(op, "inserting", tx.ID)
		if _, err := l.exec(ctx, sess, op, commands.KeyInsertStaging, tmpl, tx.Args(dialect)...); err != nil {
			sum.Failed++
			fail(rec.Line, rec.Raw, err)
			logger.Error(op+".error", "failed_to_insert", tx.ID, "error", err)
			continue
		}
		sum.Staged++
	}

	l.metrics.ObserveRows(sum.Staged, sum.Skipped+sum.Failed)

	if err := commit(ctx, sess, op); err != nil {
		logger.Error(op+".error", "error", err)
		sum.Duration = time.Since(start)
		return sum, err
	}
	sum.Committed = true
	sum.Duration = time.Since(start)

	logger.Info(op+".end",
		"read", sum.Read,
		"staged", sum.Staged,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"duration_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}
