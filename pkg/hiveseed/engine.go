package hiveseed

import "context"

// Engine is the handle to the external query engine. Every provisioning
// operation goes through it; the provisioner never reaches an engine by
// any other path.
//
// Thread-Safety: implementations are not required to be safe for
// concurrent use. Statements are issued one at a time, in program order.
type Engine interface {
	// Execute issues one statement and blocks until the engine reports
	// completion. Failures are classified into the error taxonomy.
	Execute(ctx context.Context, stmt Statement) error

	// Close releases the engine session or connection.
	Close() error
}

// RowCounter is implemented by engines able to report a table's row count.
type RowCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// Dialect renders statements to engine-specific text.
type Dialect interface {
	// Name identifies the dialect, e.g. "hive".
	Name() string

	// Render returns the statement text. Invalid statements fail with
	// ErrInvalidConfig.
	Render(stmt Statement) (string, error)
}

// Provisioner provisions the namespace and table and bulk-loads the source file.
type Provisioner interface {
	EnsureNamespace(ctx context.Context, name string, ifNotExists bool) error
	SelectNamespace(ctx context.Context, name string) error
	DeclareTable(ctx context.Context, table TableSpec, ifNotExists bool) error
	LoadOverwrite(ctx context.Context, table TableSpec, sourcePath string) error

	// Provision runs the four steps strictly in order and stops at the
	// first failure. Nothing is rolled back.
	Provision(ctx context.Context, config ProvisionConfig) error
}
