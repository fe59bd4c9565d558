package postgres

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow scans fixed values into pointers of matching types.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// mockConn records executed SQL and answers queries from a map keyed by SQL.
type mockConn struct {
	executed []string
	execErr  map[string]error
	rows     map[string]fakeRow
}

func newMockConn() *mockConn {
	return &mockConn{execErr: map[string]error{}, rows: map[string]fakeRow{}}
}

func (m *mockConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.executed = append(m.executed, sql)
	if err, ok := m.execErr[sql]; ok {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (m *mockConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	row, ok := m.rows[sql]
	if !ok {
		return fakeRow{err: fmt.Errorf("unexpected query %q", sql)}
	}
	return row
}
