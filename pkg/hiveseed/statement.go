package hiveseed

import "fmt"

// StatementKind identifies a provisioning statement.
type StatementKind int

const (
	KindCreateNamespace StatementKind = iota
	KindUseNamespace
	KindCreateTable
	KindLoadData
	KindCountRows
)

// String returns a human-readable string representation of the StatementKind.
func (k StatementKind) String() string {
	switch k {
	case KindCreateNamespace:
		return "create namespace"
	case KindUseNamespace:
		return "select namespace"
	case KindCreateTable:
		return "declare table"
	case KindLoadData:
		return "load overwrite"
	case KindCountRows:
		return "count rows"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Statement is a declarative instruction issued to an engine.
// Dialects render statements to engine-specific text.
type Statement interface {
	Kind() StatementKind
}

// CreateNamespace creates a namespace.
type CreateNamespace struct {
	Name        string
	IfNotExists bool
}

// UseNamespace scopes subsequent statements to a namespace.
type UseNamespace struct {
	Name string
}

// CreateTable registers a table definition.
type CreateTable struct {
	Table       TableSpec
	IfNotExists bool
}

// LoadData replaces (or appends to) a table's contents from a file local to
// the engine's execution node.
type LoadData struct {
	SourcePath string
	Table      string
	Overwrite  bool

	// Format repeats the declared row format for engines that do not store
	// it with the table. Engines that do may ignore it.
	Format *RowFormat
}

// CountRows counts the rows of a table in the current namespace.
type CountRows struct {
	Table string
}

func (CreateNamespace) Kind() StatementKind { return KindCreateNamespace }
func (UseNamespace) Kind() StatementKind    { return KindUseNamespace }
func (CreateTable) Kind() StatementKind     { return KindCreateTable }
func (LoadData) Kind() StatementKind        { return KindLoadData }
func (CountRows) Kind() StatementKind       { return KindCountRows }

// ProvisionPlan returns the ordered statements of one provisioning run.
func ProvisionPlan(cfg ProvisionConfig) []Statement {
	format := cfg.Table.Format()
	return []Statement{
		CreateNamespace{Name: cfg.Namespace, IfNotExists: cfg.IfNotExists},
		UseNamespace{Name: cfg.Namespace},
		CreateTable{Table: cfg.Table, IfNotExists: cfg.IfNotExists},
		LoadData{
			SourcePath: cfg.SourcePath,
			Table:      cfg.Table.Name,
			Overwrite:  true,
			Format:     &format,
		},
	}
}
