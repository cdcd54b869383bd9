package structure

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

// conn is one open connection. Rows must be fully read and closed before the next call.
type conn interface {
	exec(ctx context.Context, sql string, args ...interface{}) error
	query(ctx context.Context, sql string, args ...interface{}) (rows, error)
	close(ctx context.Context) error
}

// rows is the subset of pgx.Rows and *sql.Rows used to read catalogs.
type rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close()
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := c.conn.Exec(ctx, sql, args...)
	return err
}

func (c *pgxConn) query(ctx context.Context, sql string, args ...interface{}) (rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

func (c *pgxConn) close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// sqlConn adapts a database/sql pool limited to a single connection.
type sqlConn struct {
	db *sql.DB
}

func newSqlConn(ctx context.Context, db *sql.DB) (*sqlConn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}
	return &sqlConn{db: db}, nil
}

func (c *sqlConn) exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := c.db.ExecContext(ctx, sql, args...)
	return err
}

func (c *sqlConn) query(ctx context.Context, sql string, args ...interface{}) (rows, error) {
	r, err := c.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

func (c *sqlConn) close(_ context.Context) error {
	return c.db.Close()
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}

// collect reads every row with scan and closes the result set.
func collect[T any](r rows, scan func(r rows) (T, error)) ([]T, error) {
	defer r.Close()
	var out []T
	for r.Next() {
		v, err := scan(r)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, v)
	}
	if err := r.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

func queryStrings(ctx context.Context, c conn, sql string, args ...interface{}) ([]string, error) {
	r, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (string, error) {
		var s string
		err := r.Scan(&s)
		return s, err
	})
}
