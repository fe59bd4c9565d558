package dialect

import (
	"fmt"
	"strings"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// Hive renders HiveQL.
type Hive struct{}

// NewHive creates a Hive dialect.
func NewHive() *Hive {
	return &Hive{}
}

// Name returns "hive".
func (h *Hive) Name() string {
	return "hive"
}

// Render returns the HiveQL text for stmt.
func (h *Hive) Render(stmt hiveseed.Statement) (string, error) {
	switch s := stmt.(type) {
	case hiveseed.CreateNamespace:
		if err := hiveseed.ValidateIdentifier("namespace", s.Name); err != nil {
			return "", err
		}
		return "CREATE DATABASE " + ifNotExists(s.IfNotExists) + s.Name, nil

	case hiveseed.UseNamespace:
		if err := hiveseed.ValidateIdentifier("namespace", s.Name); err != nil {
			return "", err
		}
		return "USE " + s.Name, nil

	case hiveseed.CreateTable:
		return h.renderCreateTable(s)

	case hiveseed.LoadData:
		if err := hiveseed.ValidateIdentifier("table", s.Table); err != nil {
			return "", err
		}
		if err := requirePath(s.SourcePath); err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString("LOAD DATA LOCAL INPATH ")
		b.WriteString(hiveLiteral(s.SourcePath))
		if s.Overwrite {
			b.WriteString(" OVERWRITE")
		}
		b.WriteString(" INTO TABLE ")
		b.WriteString(s.Table)
		return b.String(), nil

	case hiveseed.CountRows:
		if err := hiveseed.ValidateIdentifier("table", s.Table); err != nil {
			return "", err
		}
		return "SELECT COUNT(*) FROM " + s.Table, nil

	default:
		return "", fmt.Errorf("hive dialect cannot render %T: %w", stmt, hiveseed.ErrInvalidConfig)
	}
}

func (h *Hive) renderCreateTable(s hiveseed.CreateTable) (string, error) {
	if err := s.Table.Validate(); err != nil {
		return "", err
	}

	cols := make([]string, len(s.Table.Columns))
	for i, c := range s.Table.Columns {
		cols[i] = c.Name + " " + string(c.Type)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(ifNotExists(s.IfNotExists))
	b.WriteString(s.Table.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") ROW FORMAT DELIMITED FIELDS TERMINATED BY ")
	b.WriteString(hiveLiteral(s.Table.Delimiter))
	if s.Table.HeaderSkip > 0 {
		fmt.Fprintf(&b, " TBLPROPERTIES (\"%s\"=\"%d\")", hiveseed.HeaderSkipProperty, s.Table.HeaderSkip)
	}
	return b.String(), nil
}

// hiveLiteral quotes a string literal using Hive's backslash escapes.
func hiveLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\t", `\t`)
	return "'" + r.Replace(s) + "'"
}

func ifNotExists(guard bool) string {
	if guard {
		return "IF NOT EXISTS "
	}
	return ""
}

func requirePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("source path is required: %w", hiveseed.ErrInvalidConfig)
	}
	if strings.ContainsAny(path, "\n\r\x00") {
		return fmt.Errorf("source path %q contains control characters: %w", path, hiveseed.ErrInvalidConfig)
	}
	return nil
}

var _ hiveseed.Dialect = (*Hive)(nil)
