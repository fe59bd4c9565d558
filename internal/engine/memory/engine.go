// Package memory implements an in-process engine with Hive semantics.
//
// Namespaces and tables live in maps. LOAD DATA reads the source through a
// filesystem.FileSystemProvider, splits each line on the table's delimiter
// without quote handling, drops the declared number of header lines and
// converts every field to its column type. A load either replaces the
// table's rows completely or leaves them untouched.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vvka-141/hiveseed/internal/dialect"
	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// DefaultNamespace is selected until a USE statement runs.
const DefaultNamespace = "default"

const maxLineSize = 16 * 1024 * 1024

// Row is one loaded record. Values are string, int64, float32, float64,
// bool or time.Time depending on the column type.
type Row []any

type table struct {
	spec hiveseed.TableSpec
	rows []Row
}

type namespace struct {
	name   string
	tables map[string]*table
}

// Engine is an in-memory hiveseed.Engine. It is safe for concurrent use,
// although the provisioner issues statements one at a time.
type Engine struct {
	mu         sync.Mutex
	fs         filesystem.FileSystemProvider
	dialect    hiveseed.Dialect
	namespaces map[string]*namespace
	current    string
	closed     bool
	executed   []string
}

// New creates an engine reading source files from fsys.
// It panics if fsys is nil.
func New(fsys filesystem.FileSystemProvider) *Engine {
	if fsys == nil {
		panic("filesystem cannot be nil")
	}
	return &Engine{
		fs:      fsys,
		dialect: dialect.NewHive(),
		namespaces: map[string]*namespace{
			DefaultNamespace: {name: DefaultNamespace, tables: make(map[string]*table)},
		},
		current: DefaultNamespace,
	}
}

// Execute runs one statement.
func (e *Engine) Execute(ctx context.Context, stmt hiveseed.Statement) error {
	_, err := e.run(ctx, stmt)
	return err
}

// run executes stmt under the engine lock. For CountRows it also returns
// the row count, read in the same critical section as the lookup.
func (e *Engine) run(ctx context.Context, stmt hiveseed.Statement) (int64, error) {
	text, err := e.dialect.Render(stmt)
	if err != nil {
		return 0, err
	}
	op := stmt.Kind().String()
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, hiveseed.NewEngineError(op, text, hiveseed.ErrEngineUnavailable, errors.New("engine is closed"))
	}
	e.executed = append(e.executed, text)

	var count int64
	switch s := stmt.(type) {
	case hiveseed.CreateNamespace:
		err = e.createNamespace(s)
	case hiveseed.UseNamespace:
		err = e.useNamespace(s)
	case hiveseed.CreateTable:
		err = e.createTable(s)
	case hiveseed.LoadData:
		err = e.load(s)
	case hiveseed.CountRows:
		var t *table
		if t, err = e.lookupTable(s.Table); err == nil {
			count = int64(len(t.rows))
		}
	default:
		return 0, fmt.Errorf("memory engine cannot execute %T: %w", stmt, hiveseed.ErrInvalidConfig)
	}

	return count, wrapFailure(op, text, err)
}

// wrapFailure turns a failure into a hiveseed.EngineError.
func wrapFailure(op, text string, err error) error {
	var f *failure
	if errors.As(err, &f) {
		return hiveseed.NewEngineError(op, text, f.kind, f.err)
	}
	return err
}

// failure pairs an engine message with its taxonomy sentinel.
type failure struct {
	kind error
	err  error
}

func (f *failure) Error() string { return f.err.Error() }

func fail(kind error, format string, args ...any) error {
	return &failure{kind: kind, err: fmt.Errorf(format, args...)}
}

// CountRows returns the row count of a table in the current namespace.
func (e *Engine) CountRows(ctx context.Context, name string) (int64, error) {
	return e.run(ctx, hiveseed.CountRows{Table: name})
}

// Close marks the engine closed. Later statements fail with
// hiveseed.ErrEngineUnavailable. State stays readable for assertions.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Rows returns a copy of a table's rows.
func (e *Engine) Rows(ns, name string) ([]Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.namespaces[strings.ToLower(ns)]
	if !ok {
		return nil, false
	}
	t, ok := n.tables[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out, true
}

// HasNamespace reports whether a namespace exists.
func (e *Engine) HasNamespace(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.namespaces[strings.ToLower(name)]
	return ok
}

// CurrentNamespace returns the namespace selected by the last USE.
func (e *Engine) CurrentNamespace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.namespaces[e.current].name
}

// Executed returns the rendered text of every statement run so far.
func (e *Engine) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func (e *Engine) createNamespace(s hiveseed.CreateNamespace) error {
	key := strings.ToLower(s.Name)
	if _, ok := e.namespaces[key]; ok {
		if s.IfNotExists {
			return nil
		}
		return fail(hiveseed.ErrAlreadyExists, "Database '%s' already exists", key)
	}
	e.namespaces[key] = &namespace{name: s.Name, tables: make(map[string]*table)}
	return nil
}

func (e *Engine) useNamespace(s hiveseed.UseNamespace) error {
	key := strings.ToLower(s.Name)
	if _, ok := e.namespaces[key]; !ok {
		return fail(hiveseed.ErrNotFound, "Database '%s' not found", key)
	}
	e.current = key
	return nil
}

func (e *Engine) createTable(s hiveseed.CreateTable) error {
	n := e.namespaces[e.current]
	key := strings.ToLower(s.Table.Name)
	if _, ok := n.tables[key]; ok {
		if s.IfNotExists {
			return nil
		}
		return fail(hiveseed.ErrAlreadyExists, "Table %s.%s already exists", e.current, key)
	}
	spec := s.Table
	spec.Columns = append([]hiveseed.Column(nil), s.Table.Columns...)
	n.tables[key] = &table{spec: spec}
	return nil
}

func (e *Engine) lookupTable(name string) (*table, error) {
	t, ok := e.namespaces[e.current].tables[strings.ToLower(name)]
	if !ok {
		return nil, fail(hiveseed.ErrNotFound, "Table or view not found: %s.%s", e.current, strings.ToLower(name))
	}
	return t, nil
}

// load ignores s.Format: the row format declared with the table wins.
func (e *Engine) load(s hiveseed.LoadData) error {
	t, err := e.lookupTable(s.Table)
	if err != nil {
		return err
	}

	rows, err := e.readRows(s.SourcePath, t.spec)
	if err != nil {
		return err
	}

	if s.Overwrite {
		t.rows = rows
	} else {
		t.rows = append(t.rows, rows...)
	}
	return nil
}

func (e *Engine) readRows(path string, spec hiveseed.TableSpec) ([]Row, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fail(hiveseed.ErrSourceNotFound, "LOAD DATA input path does not exist: %s", path)
		}
		return nil, fail(hiveseed.ErrSourceNotFound, "LOAD DATA input path is not readable: %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var rows []Row
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= spec.HeaderSkip {
			continue
		}
		row, err := parseLine(strings.TrimSuffix(scanner.Text(), "\r"), spec)
		if err != nil {
			return nil, fail(hiveseed.ErrSchemaMismatch, "%s line %d: %w", path, lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fail(hiveseed.ErrSourceNotFound, "read %s: %w", path, err)
	}
	return rows, nil
}

func parseLine(line string, spec hiveseed.TableSpec) (Row, error) {
	fields := strings.Split(line, spec.Delimiter)
	if len(fields) != len(spec.Columns) {
		return nil, fmt.Errorf("expected %d fields, found %d", len(spec.Columns), len(fields))
	}
	row := make(Row, len(fields))
	for i, raw := range fields {
		v, err := convert(raw, spec.Columns[i].Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: cannot cast %q to %s", spec.Columns[i].Name, raw, spec.Columns[i].Type)
		}
		row[i] = v
	}
	return row, nil
}

func convert(raw string, t hiveseed.ColumnType) (any, error) {
	if t.IsText() {
		return raw, nil
	}
	s := strings.TrimSpace(raw)
	switch t {
	case hiveseed.TypeTinyInt:
		return strconv.ParseInt(s, 10, 8)
	case hiveseed.TypeSmallInt:
		return strconv.ParseInt(s, 10, 16)
	case hiveseed.TypeInt:
		return strconv.ParseInt(s, 10, 32)
	case hiveseed.TypeBigInt:
		return strconv.ParseInt(s, 10, 64)
	case hiveseed.TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case hiveseed.TypeDouble, hiveseed.TypeDecimal:
		return strconv.ParseFloat(s, 64)
	case hiveseed.TypeBoolean:
		switch strings.ToLower(s) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	case hiveseed.TypeDate:
		return time.Parse(time.DateOnly, s)
	case hiveseed.TypeTimestamp:
		return time.Parse("2006-01-02 15:04:05.999999999", s)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

var (
	_ hiveseed.Engine     = (*Engine)(nil)
	_ hiveseed.RowCounter = (*Engine)(nil)
)
