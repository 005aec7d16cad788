package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/query"
	"github.com/lib/pq"
)

const (
	uniqueViolationCode     pq.ErrorCode = "23505"
	foreignKeyViolationCode pq.ErrorCode = "23503"
)

// ScanFunc consumes one result row.
type ScanFunc func(rows *sql.Rows) error

// DB runs single queries on a connection checked out of the pool for that query only.
type DB struct {
	pool   *sql.DB
	logger *slog.Logger
}

func NewDB(pool *sql.DB, logger *slog.Logger) *DB {
	return &DB{pool: pool, logger: logger}
}

// Query runs q and calls scan once per row. The connection is released on every path,
// after the rows are closed.
func (d *DB) Query(ctx context.Context, q query.Query, scan ScanFunc) error {
	conn, err := d.pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer d.release(ctx, conn)

	rows, err := conn.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return mapError(err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		err = scan(rows)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}

	err = rows.Err()
	if err != nil {
		return mapError(err)
	}

	return nil
}

func (d *DB) release(ctx context.Context, conn *sql.Conn) {
	err := conn.Close()
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to release connection", "error", err)
	}
}

// mapError translates constraint violations to persistence errors; anything else is wrapped.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("query failed: %w", err)
	}

	switch pqErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s", persistence.ErrUniqueViolation, pqErr.Message)
	case foreignKeyViolationCode:
		return &persistence.ForeignKeyViolationError{Constraint: pqErr.Constraint, Err: pqErr}
	default:
		return fmt.Errorf("query failed: %w", err)
	}
}
