package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/database"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/metrics"
)

// Initializer creates the database namespace and the tables.
type Initializer struct {
	executor
}

// NewInitializer returns an Initializer over reg.
func NewInitializer(reg *commands.Registry, m *metrics.Metrics) *Initializer {
	return &Initializer{executor{reg: reg, metrics: m}}
}

// CreateDatabase creates the named database. An existing database counts
// as success. On engines without database namespaces it does nothing.
func (i *Initializer) CreateDatabase(ctx context.Context, sess database.Session, name string) error {
	return i.namespace(ctx, sess, "create_database", commands.KeyCreateDatabase, name)
}

// UseDatabase makes the named database current for the session.
func (i *Initializer) UseDatabase(ctx context.Context, sess database.Session, name string) error {
	return i.namespace(ctx, sess, "use_database", commands.KeyUseDatabase, name)
}

// CheckDatabase fails with a StatementFailure when the named database is
// missing. Engines that can switch to a missing namespace without error
// register a lookup for this; without one it does nothing.
func (i *Initializer) CheckDatabase(ctx context.Context, sess database.Session, name string) error {
	const op = "use_database"
	tmpl, ok := i.reg.Lookup(commands.KeyDatabaseExists)
	if !ok {
		return nil
	}
	sql, args, err := i.reg.Bind(tmpl, map[string]string{"name": name})
	if err != nil {
		return errs.Statement(op, commands.KeyDatabaseExists, err)
	}

	start := time.Now()
	rows, err := sess.Query(ctx, sql, args...)
	i.metrics.ObserveStatement(commands.KeyDatabaseExists, time.Since(start).Seconds(), err)
	if err != nil {
		return errs.Statement(op, commands.KeyDatabaseExists, err)
	}
	if len(rows) == 0 {
		logging.WithFields(ctx, "db", name).Error(op+".error", "error", "database does not exist")
		return errs.Statement(op, commands.KeyUseDatabase, fmt.Errorf("database %q does not exist", name))
	}
	return nil
}

func (i *Initializer) namespace(ctx context.Context, sess database.Session, op, key, name string) error {
	logger := logging.WithFields(ctx, "db", name)
	logger.Info(op + ".start")

	tmpl, ok := i.reg.Lookup(key)
	if !ok {
		logger.Info(op+".end", "skipped", "engine has no named databases")
		return nil
	}
	sql, err := i.reg.Render(tmpl, name)
	if err != nil {
		logger.Error(op+".error", "error", err)
		return errs.Statement(op, key, err)
	}

	if _, err := i.exec(ctx, sess, op, key, sql); err != nil {
		if !database.IsAlreadyExists(err) {
			logger.Error(op+".error", "error", err)
			return err
		}
		logger.Info(op+".end", "already_exists", true)
		return commit(ctx, sess, op)
	}

	if err := commit(ctx, sess, op); err != nil {
		logger.Error(op+".error", "error", err)
		return err
	}
	logger.Info(op + ".end")
	return nil
}

// CreateTables executes every table statement in registry order. A table
// that already exists counts as created. Any other failure is logged and
// recorded, and the remaining tables are still attempted.
func (i *Initializer) CreateTables(ctx context.Context, sess database.Session) []StepResult {
	const op = "create_tables"
	logger := logging.FromContext(ctx)
	logger.Info(op + ".start")

	var results []StepResult
	for _, e := range i.reg.Entries(commands.KindTable) {
		logger.Info(op, "creating", e.Key)

		_, err := i.exec(ctx, sess, op, e.Key, e.Template)
		switch {
		case err == nil:
		case database.IsAlreadyExists(err):
			logger.Info(op, "already_exists", e.Key)
			err = nil
		default:
			logger.Error(op+".error", "key", e.Key, "error", err)
		}
		results = append(results, StepResult{Key: e.Key, Err: err})
	}

	if err := commit(ctx, sess, op); err != nil {
		logger.Error(op+".error", "error", err)
		results = append(results, StepResult{Key: "commit", Err: err})
	}
	logger.Info(op+".end", "tables", len(results), "failed", len(Failed(results)))
	return results
}
