package hiveseed

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the provisioning failure taxonomy.
// Engines wrap their raw failures so callers can use errors.Is().
//
// Example usage:
//
//	err := provisioner.Provision(ctx, config)
//	if errors.Is(err, hiveseed.ErrAlreadyExists) {
//	    // namespace or table left over from a previous run
//	}
var (
	// ErrAlreadyExists indicates a namespace or table collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound indicates a referenced namespace or table is missing.
	ErrNotFound = errors.New("not found")

	// ErrSourceNotFound indicates the load path is not readable by the engine.
	ErrSourceNotFound = errors.New("source not found")

	// ErrSchemaMismatch indicates the source file shape is incompatible with the declared schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrEngineUnavailable indicates a connection or submission failure.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// EngineError carries a failed statement together with its taxonomy
// classification and the engine's own error.
//
// The engine's message is the only diagnostic a user sees, so Error()
// returns it unchanged after the operation prefix.
type EngineError struct {
	// Op names the provisioning step, e.g. "create namespace".
	Op string

	// Statement is the rendered statement text, if any.
	Statement string

	// Kind is one of the taxonomy sentinels. Nil when the engine error
	// could not be classified.
	Kind error

	// Err is the raw error returned by the engine.
	Err error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the classification and the raw engine error.
func (e *EngineError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewEngineError builds an EngineError. A nil err yields nil.
func NewEngineError(op, statement string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Statement: statement, Kind: kind, Err: err}
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrEngineUnavailable):
		return ExitEngineUnavailable
	case errors.Is(err, ErrAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrSourceNotFound):
		return ExitSourceNotFound
	case errors.Is(err, ErrSchemaMismatch):
		return ExitSchemaMismatch
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitEngineUnavailable
	}

	return ExitGeneralError
}

// isUsageError recognizes the error texts cobra produces for bad invocations.
func isUsageError(msg string) bool {
	for _, prefix := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"required flag",
		"invalid argument",
		"flag needs an argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
