package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
	"github.com/JonMunkholm/transactions/internal/source"
)

// UploadTimeout is the maximum duration for an upload run.
var UploadTimeout = 10 * time.Minute

// Service runs the setup, upload and query operations over one registry.
type Service struct {
	Init       *Initializer
	Staging    *StagingLoader
	Corrector  *Corrector
	Normalizer *Normalizer
	Queries    *QueryExecutor
}

// NewService wires every pipeline component to reg. m may be nil.
func NewService(reg *commands.Registry, m *metrics.Metrics, maxSourceBytes int64) *Service {
	return &Service{
		Init:       NewInitializer(reg, m),
		Staging:    NewStagingLoader(reg, m, maxSourceBytes),
		Corrector:  NewCorrector(reg, m),
		Normalizer: NewNormalizer(reg, m),
		Queries:    NewQueryExecutor(reg, m),
	}
}

// withRun tags ctx with a fresh run id unless it already has one.
func withRun(ctx context.Context) (context.Context, string) {
	if id := logging.RunID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return logging.ContextWithRunID(ctx, id), id
}

// Setup creates the database if needed, switches to it and creates the
// tables. A create failure is logged and setup goes on; a missing
// database or a failure to switch to it stops setup before any table is
// created.
func (s *Service) Setup(ctx context.Context, sess database.Session, dbName string) ([]StepResult, error) {
	ctx, _ = withRun(ctx)
	logger := logging.WithFields(ctx, "db", dbName)

	createErr := s.Init.CreateDatabase(ctx, sess, dbName)
	if err := s.Init.CheckDatabase(ctx, sess, dbName); err != nil {
		return nil, errors.Join(createErr, err)
	}
	if err := s.Init.UseDatabase(ctx, sess, dbName); err != nil {
		return nil, errors.Join(createErr, err)
	}
	results := s.Init.CreateTables(ctx, sess)

	logger.Info("setup: database and tables created or verified", "failed", len(Failed(results)))
	return results, createErr
}

// Upload stages src, applies the corrections and populates the normalized
// tables. A source that cannot be read aborts the run before any
// correction or normalization.
func (s *Service) Upload(ctx context.Context, sess database.Session, dbName string, src source.Source) (UploadResult, error) {
	ctx, runID := withRun(ctx)
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	start := time.Now()
	result := UploadResult{RunID: runID}
	logger := logging.WithFields(ctx, "db", dbName, "file", src.Name())

	if err := s.Init.UseDatabase(ctx, sess, dbName); err != nil {
		return result, err
	}

	summary, err := s.Staging.Load(ctx, src, sess)
	result.Staging = summary
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	result.Corrected, result.CorrectErr = s.Corrector.Apply(ctx, sess)
	result.Steps = s.Normalizer.Populate(ctx, sess)
	result.Duration = time.Since(start)

	logger.Info("upload: data uploaded",
		"staged", summary.Staged,
		"skipped", summary.Skipped+summary.Failed,
		"failed_steps", len(Failed(result.Steps)),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// Query switches to dbName and runs the report key.
func (s *Service) Query(ctx context.Context, sess database.Session, dbName, key string, params map[string]string) ([]Row, error) {
	ctx, _ = withRun(ctx)
	if err := s.Init.UseDatabase(ctx, sess, dbName); err != nil {
		return nil, err
	}
	return s.Queries.RunE(ctx, sess, key, params)
}

// Fatal reports whether err must end the whole run.
func Fatal(err error) bool {
	return errs.Is(err, errs.KindConnectivity)
}
