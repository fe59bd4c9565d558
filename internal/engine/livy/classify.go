package livy

import (
	"context"
	"errors"
	"strings"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// StatementError is a failed Spark SQL statement as Livy reports it.
type StatementError struct {
	Name      string
	Value     string
	Traceback []string
}

func (e *StatementError) Error() string {
	if e.Name == "" {
		return e.Value
	}
	return e.Name + ": " + e.Value
}

// Message fragments Spark uses in AnalysisException and friends, checked
// in order. Spark 3.4+ prefixes messages with error classes in brackets.
var statementClasses = []struct {
	kind      error
	fragments []string
}{
	{hiveseed.ErrSourceNotFound, []string{
		"input path does not exist",
		"invalid path",
		"path does not exist",
		"load_data_path_not_exists",
		"filenotfoundexception",
	}},
	{hiveseed.ErrAlreadyExists, []string{
		"already exists",
		"alreadyexistsexception",
	}},
	{hiveseed.ErrNotFound, []string{
		"not found",
		"nosuchdatabaseexception",
		"nosuchtableexception",
		"schema_not_found",
		"table_or_view_not_found",
	}},
	{hiveseed.ErrSchemaMismatch, []string{
		"numberformatexception",
		"cannot cast",
		"cast_invalid_input",
		"malformed",
		"mismatched input columns",
		"does not match",
	}},
}

// Classify maps a Spark statement failure onto the error taxonomy.
// It returns nil for errors it does not recognize.
func Classify(name, value string) error {
	text := strings.ToLower(name + ": " + value)
	for _, c := range statementClasses {
		for _, fragment := range c.fragments {
			if strings.Contains(text, fragment) {
				return c.kind
			}
		}
	}
	return nil
}

// classifyTransport maps an HTTP or network failure onto the taxonomy.
// Anything that kept a statement from reaching Spark, other than the
// caller giving up, means the engine is unavailable.
func classifyTransport(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return hiveseed.ErrEngineUnavailable
}
