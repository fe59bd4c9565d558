package dialect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// rowFormatCommentPrefix marks table comments that carry a row format.
const rowFormatCommentPrefix = "hiveseed:"

var postgresTypes = map[hiveseed.ColumnType]string{
	hiveseed.TypeString:    "text",
	hiveseed.TypeVarchar:   "varchar",
	hiveseed.TypeChar:      "text",
	hiveseed.TypeTinyInt:   "smallint",
	hiveseed.TypeSmallInt:  "smallint",
	hiveseed.TypeInt:       "integer",
	hiveseed.TypeBigInt:    "bigint",
	hiveseed.TypeFloat:     "real",
	hiveseed.TypeDouble:    "double precision",
	hiveseed.TypeDecimal:   "numeric",
	hiveseed.TypeBoolean:   "boolean",
	hiveseed.TypeDate:      "date",
	hiveseed.TypeTimestamp: "timestamp",
}

// Postgres renders PostgreSQL statements.
//
// PostgreSQL keeps no row format with a table, so CreateTable stores it in
// the table comment and LoadData needs it passed back in (LoadData.Format).
type Postgres struct{}

// NewPostgres creates a Postgres dialect.
func NewPostgres() *Postgres {
	return &Postgres{}
}

// Name returns "postgres".
func (p *Postgres) Name() string {
	return "postgres"
}

// Render returns the PostgreSQL text for stmt. CreateTable and LoadData
// render to two statements separated by ";\n"; they run as one implicit
// transaction under the simple query protocol.
func (p *Postgres) Render(stmt hiveseed.Statement) (string, error) {
	switch s := stmt.(type) {
	case hiveseed.CreateNamespace:
		if err := hiveseed.ValidateIdentifier("namespace", s.Name); err != nil {
			return "", err
		}
		return "CREATE SCHEMA " + ifNotExists(s.IfNotExists) + s.Name, nil

	case hiveseed.UseNamespace:
		if err := hiveseed.ValidateIdentifier("namespace", s.Name); err != nil {
			return "", err
		}
		return "SET search_path TO " + s.Name, nil

	case hiveseed.CreateTable:
		return p.renderCreateTable(s)

	case hiveseed.LoadData:
		return p.renderLoad(s)

	case hiveseed.CountRows:
		if err := hiveseed.ValidateIdentifier("table", s.Table); err != nil {
			return "", err
		}
		return "SELECT count(*) FROM " + s.Table, nil

	default:
		return "", fmt.Errorf("postgres dialect cannot render %T: %w", stmt, hiveseed.ErrInvalidConfig)
	}
}

func (p *Postgres) renderCreateTable(s hiveseed.CreateTable) (string, error) {
	if err := s.Table.Validate(); err != nil {
		return "", err
	}

	cols := make([]string, len(s.Table.Columns))
	for i, c := range s.Table.Columns {
		cols[i] = c.Name + " " + postgresTypes[c.Type]
	}

	comment, err := RowFormatComment(s.Table.Format())
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("CREATE TABLE %s%s (%s);\nCOMMENT ON TABLE %s IS %s",
		ifNotExists(s.IfNotExists), s.Table.Name, strings.Join(cols, ", "),
		s.Table.Name, pgLiteral(comment)), nil
}

func (p *Postgres) renderLoad(s hiveseed.LoadData) (string, error) {
	if err := hiveseed.ValidateIdentifier("table", s.Table); err != nil {
		return "", err
	}
	if err := requirePath(s.SourcePath); err != nil {
		return "", err
	}
	if s.Format == nil {
		return "", fmt.Errorf("postgres load into %s needs the table's row format: %w", s.Table, hiveseed.ErrInvalidConfig)
	}
	if err := s.Format.Validate(); err != nil {
		return "", err
	}

	var source string
	header := false
	switch {
	case s.Format.HeaderSkip > 1:
		// COPY's HEADER discards exactly one line.
		source = "PROGRAM " + pgLiteral(fmt.Sprintf("tail -n +%d %s", s.Format.HeaderSkip+1, shellQuote(s.SourcePath)))
	default:
		source = pgLiteral(s.SourcePath)
		header = s.Format.HeaderSkip == 1
	}

	copyStmt := fmt.Sprintf("COPY %s FROM %s WITH (FORMAT csv, DELIMITER %s, HEADER %t)",
		s.Table, source, pgLiteral(s.Format.Delimiter), header)

	if !s.Overwrite {
		return copyStmt, nil
	}
	return "TRUNCATE TABLE " + s.Table + ";\n" + copyStmt, nil
}

// RowFormatComment encodes a row format as a table comment.
func RowFormatComment(f hiveseed.RowFormat) (string, error) {
	data, err := json.Marshal(struct {
		Delimiter  string `json:"delimiter"`
		HeaderSkip int    `json:"header_skip"`
	}{f.Delimiter, f.HeaderSkip})
	if err != nil {
		return "", fmt.Errorf("encode row format: %w", err)
	}
	return rowFormatCommentPrefix + string(data), nil
}

// ParseRowFormatComment decodes a comment written by RowFormatComment.
// The second return value is false for comments from other sources.
func ParseRowFormatComment(comment string) (hiveseed.RowFormat, bool) {
	payload, ok := strings.CutPrefix(comment, rowFormatCommentPrefix)
	if !ok {
		return hiveseed.RowFormat{}, false
	}
	var decoded struct {
		Delimiter  string `json:"delimiter"`
		HeaderSkip int    `json:"header_skip"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return hiveseed.RowFormat{}, false
	}
	return hiveseed.RowFormat{Delimiter: decoded.Delimiter, HeaderSkip: decoded.HeaderSkip}, true
}

// pgLiteral quotes a string literal for standard_conforming_strings = on.
func pgLiteral(s string) string {
	if strings.ContainsAny(s, "\t") {
		return "E'" + strings.NewReplacer(`\`, `\\`, `'`, `''`, "\t", `\t`).Replace(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// shellQuote quotes a path for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var _ hiveseed.Dialect = (*Postgres)(nil)
