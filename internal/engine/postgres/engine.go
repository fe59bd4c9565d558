// Package postgres runs provisioning statements against a PostgreSQL
// compatible server.
//
// A namespace is a schema and USE becomes SET search_path. Every statement
// runs on one pinned connection so the search path carries over. Loads use
// server-side COPY, so the source path is read by the database server, just
// as Hive reads LOCAL INPATH on its execution node.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/hiveseed/internal/dialect"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

const (
	schemaExistsQuery = `SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = lower($1))`
	tableCommentQuery = `SELECT to_regclass(lower($1)) IS NOT NULL, coalesce(obj_description(to_regclass(lower($1)), 'pg_class'), '')`
)

// Conn is the subset of *pgxpool.Conn the engine uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Engine is a hiveseed.Engine on a single PostgreSQL connection.
type Engine struct {
	conn    Conn
	dialect *dialect.Postgres
	logger  hiveseed.Logger
	release func() error
}

// Open connects through connector and pins one pooled connection.
func Open(ctx context.Context, connector hiveseed.Connector, logger hiveseed.Logger) (*Engine, error) {
	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		closeConnector(connector)
		return nil, hiveseed.NewEngineError("connect", "", hiveseed.ErrEngineUnavailable, err)
	}

	e := New(conn, logger)
	e.release = func() error {
		conn.Release()
		pool.Close()
		return closeConnector(connector)
	}
	return e, nil
}

// New wraps an established connection. Close does not release it.
// It panics if conn or logger is nil.
func New(conn Conn, logger hiveseed.Logger) *Engine {
	if conn == nil {
		panic("conn cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Engine{conn: conn, dialect: dialect.NewPostgres(), logger: logger}
}

func closeConnector(connector hiveseed.Connector) error {
	if c, ok := connector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Execute renders stmt and runs it.
func (e *Engine) Execute(ctx context.Context, stmt hiveseed.Statement) error {
	op := stmt.Kind().String()

	switch s := stmt.(type) {
	case hiveseed.UseNamespace:
		if err := e.requireSchema(ctx, s.Name); err != nil {
			return err
		}
	case hiveseed.LoadData:
		if s.Format == nil {
			format, err := e.storedFormat(ctx, s.Table)
			if err != nil {
				return err
			}
			s.Format = &format
			stmt = s
		}
	}

	text, err := e.dialect.Render(stmt)
	if err != nil {
		return err
	}

	e.logger.Verbose("postgres: %s", text)
	tag, err := e.conn.Exec(ctx, text)
	if err != nil {
		return hiveseed.NewEngineError(op, text, Classify(err), err)
	}
	if stmt.Kind() == hiveseed.KindLoadData {
		e.logger.Verbose("postgres: %s", tag.String())
	}
	return nil
}

// CountRows counts the rows of a table on the current search path.
func (e *Engine) CountRows(ctx context.Context, table string) (int64, error) {
	stmt := hiveseed.CountRows{Table: table}
	text, err := e.dialect.Render(stmt)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := e.conn.QueryRow(ctx, text).Scan(&n); err != nil {
		return 0, hiveseed.NewEngineError(stmt.Kind().String(), text, Classify(err), err)
	}
	return n, nil
}

// Close releases the connection, pool and connector resources.
func (e *Engine) Close() error {
	if e.release == nil {
		return nil
	}
	release := e.release
	e.release = nil
	return release()
}

// requireSchema fails with ErrNotFound for a missing schema. SET search_path
// accepts unknown schemas silently.
func (e *Engine) requireSchema(ctx context.Context, name string) error {
	var exists bool
	if err := e.conn.QueryRow(ctx, schemaExistsQuery, name).Scan(&exists); err != nil {
		return hiveseed.NewEngineError(hiveseed.KindUseNamespace.String(), schemaExistsQuery, Classify(err), err)
	}
	if !exists {
		return hiveseed.NewEngineError(hiveseed.KindUseNamespace.String(), "SET search_path TO "+name,
			hiveseed.ErrNotFound, fmt.Errorf("schema %q does not exist", name))
	}
	return nil
}

// storedFormat reads the row format CreateTable saved in the table comment.
func (e *Engine) storedFormat(ctx context.Context, table string) (hiveseed.RowFormat, error) {
	op := hiveseed.KindLoadData.String()

	var (
		exists  bool
		comment string
	)
	if err := e.conn.QueryRow(ctx, tableCommentQuery, table).Scan(&exists, &comment); err != nil {
		return hiveseed.RowFormat{}, hiveseed.NewEngineError(op, tableCommentQuery, Classify(err), err)
	}
	if !exists {
		return hiveseed.RowFormat{}, hiveseed.NewEngineError(op, "", hiveseed.ErrNotFound,
			fmt.Errorf("relation %q does not exist", table))
	}
	format, ok := dialect.ParseRowFormatComment(comment)
	if !ok {
		return hiveseed.RowFormat{}, hiveseed.NewEngineError(op, "", hiveseed.ErrSchemaMismatch,
			errors.New("table was not declared by hiveseed: no row format in its comment"))
	}
	return format, nil
}

var (
	_ hiveseed.Engine     = (*Engine)(nil)
	_ hiveseed.RowCounter = (*Engine)(nil)
	_ Conn                = (*pgxpool.Conn)(nil)
)
