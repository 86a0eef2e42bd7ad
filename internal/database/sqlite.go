package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/config"
)

const savepointName = "stmt"

// sqliteSession pins one connection so the transaction and, for
// ":memory:", the database itself live as long as the session.
type sqliteSession struct {
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

func dialSQLite(ctx context.Context, cfg config.DatabaseConfig) (Session, error) {
	return OpenSQLite(ctx, cfg.SQLitePath)
}

// OpenSQLite opens an SQLite session on path. Use ":memory:" for a
// throwaway database.
func OpenSQLite(ctx context.Context, path string) (Session, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite conn: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return &sqliteSession{db: db, conn: conn}, nil
}

func (s *sqliteSession) Dialect() commands.Dialect { return commands.SQLite }

func (s *sqliteSession) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *sqliteSession) savepoint(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(s.tx); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO "+savepointName); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		_, _ = s.tx.ExecContext(ctx, "RELEASE "+savepointName)
		return err
	}
	_, err := s.tx.ExecContext(ctx, "RELEASE "+savepointName)
	return err
}

func (s *sqliteSession) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := s.savepoint(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

func (s *sqliteSession) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	var out []Row
	err := s.savepoint(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range vals {
				if b, ok := v.([]byte); ok {
					vals[i] = string(b)
				}
			}
			out = append(out, Row(vals))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqliteSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *sqliteSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

func (s *sqliteSession) Close(ctx context.Context) error {
	_ = s.Rollback(ctx)
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}
