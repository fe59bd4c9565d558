package hiveseed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ColumnType is a primitive column type in Hive spelling.
type ColumnType string

const (
	TypeString    ColumnType = "STRING"
	TypeVarchar   ColumnType = "VARCHAR"
	TypeChar      ColumnType = "CHAR"
	TypeTinyInt   ColumnType = "TINYINT"
	TypeSmallInt  ColumnType = "SMALLINT"
	TypeInt       ColumnType = "INT"
	TypeBigInt    ColumnType = "BIGINT"
	TypeFloat     ColumnType = "FLOAT"
	TypeDouble    ColumnType = "DOUBLE"
	TypeDecimal   ColumnType = "DECIMAL"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeDate      ColumnType = "DATE"
	TypeTimestamp ColumnType = "TIMESTAMP"
)

var columnTypes = map[ColumnType]bool{
	TypeString: true, TypeVarchar: true, TypeChar: true,
	TypeTinyInt: true, TypeSmallInt: true, TypeInt: true, TypeBigInt: true,
	TypeFloat: true, TypeDouble: true, TypeDecimal: true,
	TypeBoolean: true, TypeDate: true, TypeTimestamp: true,
}

var typeAliases = map[string]ColumnType{
	"INTEGER": TypeInt,
	"TEXT":    TypeString,
	"REAL":    TypeFloat,
	"BOOL":    TypeBoolean,
	"NUMERIC": TypeDecimal,
}

// ParseColumnType normalizes a type name. Matching is case-insensitive and
// accepts a few common aliases (INTEGER, TEXT, REAL, BOOL, NUMERIC).
func ParseColumnType(s string) (ColumnType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := typeAliases[name]; ok {
		return alias, nil
	}
	t := ColumnType(name)
	if !t.IsValid() {
		return "", fmt.Errorf("unsupported column type %q: %w", s, ErrInvalidConfig)
	}
	return t, nil
}

// IsValid returns true if the type is one of the supported primitives.
func (t ColumnType) IsValid() bool {
	return columnTypes[t]
}

// IsText reports whether values of this type are kept verbatim.
func (t ColumnType) IsText() bool {
	return t == TypeString || t == TypeVarchar || t == TypeChar
}

// Column is one entry of an ordered table schema.
type Column struct {
	Name string
	Type ColumnType
}

// RowFormat describes how the backing file is split into fields.
type RowFormat struct {
	// Delimiter is the single character separating fields.
	Delimiter string

	// HeaderSkip is the number of leading lines discarded on every load.
	HeaderSkip int
}

// TableSpec is the immutable declaration of the target table.
type TableSpec struct {
	Name       string
	Columns    []Column
	Delimiter  string
	HeaderSkip int
}

// Format returns the row format carried by the table declaration.
func (s TableSpec) Format() RowFormat {
	return RowFormat{Delimiter: s.Delimiter, HeaderSkip: s.HeaderSkip}
}

// ColumnNames returns the column names in schema order.
func (s TableSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks the table name, schema and row format.
// It returns a multi-error if multiple validation failures occur.
func (s TableSpec) Validate() error {
	var errs []error

	if err := ValidateIdentifier("table", s.Name); err != nil {
		errs = append(errs, err)
	}

	if len(s.Columns) == 0 {
		errs = append(errs, fmt.Errorf("table %q has no columns: %w", s.Name, ErrInvalidConfig))
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if err := ValidateIdentifier("column", c.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate column %q: %w", c.Name, ErrInvalidConfig))
		}
		seen[key] = true
		if !c.Type.IsValid() {
			errs = append(errs, fmt.Errorf("column %q has unsupported type %q: %w", c.Name, c.Type, ErrInvalidConfig))
		}
	}

	if err := s.Format().Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks that the delimiter is a single usable character and the
// header skip is not negative.
func (f RowFormat) Validate() error {
	var errs []error

	if utf8.RuneCountInString(f.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("delimiter %q must be exactly one character: %w", f.Delimiter, ErrInvalidConfig))
	} else if strings.ContainsAny(f.Delimiter, "'\\\n\r") {
		errs = append(errs, fmt.Errorf("delimiter %q is not allowed: %w", f.Delimiter, ErrInvalidConfig))
	}

	if f.HeaderSkip < 0 {
		errs = append(errs, fmt.Errorf("header skip cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier checks a namespace, table or column name.
// Names are emitted unquoted so engines fold case consistently.
func ValidateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name is required: %w", kind, ErrInvalidConfig)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%s name %q exceeds %d characters: %w", kind, name, MaxIdentifierLength, ErrInvalidConfig)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%s name %q is not a valid identifier: %w", kind, name, ErrInvalidConfig)
	}
	return nil
}

// ProvisionConfig contains everything one provisioning run needs besides
// the engine handle itself.
type ProvisionConfig struct {
	// AppName labels the run for observability. It has no functional effect.
	AppName string

	// Namespace is the target namespace (a "database" in Hive terms).
	Namespace string

	// Table is the table declaration.
	Table TableSpec

	// SourcePath is the file to load, local to the engine's execution node.
	SourcePath string

	// IfNotExists guards namespace and table creation. Off by default:
	// a rerun then fails with ErrAlreadyExists.
	IfNotExists bool
}

// Validate checks if the ProvisionConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *ProvisionConfig) Validate() error {
	var errs []error

	if err := ValidateIdentifier("namespace", c.Namespace); err != nil {
		errs = append(errs, err)
	}

	if err := c.Table.Validate(); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(c.SourcePath) == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
