package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/transactions/internal/commands"
	"github.com/JonMunkholm/transactions/internal/config"
)

// pgSession is a Session over a single pgx connection.
type pgSession struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

func dialPostgres(ctx context.Context, cfg config.DatabaseConfig) (Session, error) {
	connCfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	connCfg.Host = cfg.Host
	connCfg.Port = uint16(cfg.Port)
	connCfg.User = cfg.User
	connCfg.Password = cfg.Password
	connCfg.Database = cfg.Catalog
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, err
	}
	return &pgSession{conn: conn}, nil
}

func (s *pgSession) Dialect() commands.Dialect { return commands.Postgres }

// begin opens the unit of work on first use.
func (s *pgSession) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return nil
}

// savepoint runs fn inside a nested transaction, which pgx implements as a
// savepoint. A failure rolls back to the savepoint only.
func (s *pgSession) savepoint(ctx context.Context, fn func(pgx.Tx) error) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	sp, err := s.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}
	return sp.Commit(ctx)
}

func (s *pgSession) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := s.savepoint(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

func (s *pgSession) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	var out []Row
	err := s.savepoint(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				return err
			}
			row := make(Row, len(vals))
			for i, v := range vals {
				row[i] = pgValue(v)
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *pgSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *pgSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback(ctx)
}

func (s *pgSession) Close(ctx context.Context) error {
	_ = s.Rollback(ctx)
	return s.conn.Close(ctx)
}

// pgValue converts NUMERIC results to decimal.Decimal so callers see the
// same exact value type for prices on every engine.
func pgValue(v any) any {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return v
	}
	if !n.Valid {
		return nil
	}
	raw, err := n.Value()
	if err != nil {
		return v
	}
	str, ok := raw.(string)
	if !ok {
		return v
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return str
	}
	return d
}
