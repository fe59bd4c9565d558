package postgres

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// SQLSTATE codes mapped onto the provisioning taxonomy.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeDuplicateSchema = "42P06"
	pgCodeDuplicateTable  = "42P07"

	pgCodeInvalidSchemaName = "3F000"
	pgCodeUndefinedTable    = "42P01"

	pgCodeUndefinedFile = "58P01"
	pgCodeDuplicateFile = "58P02"

	pgCodeBadCopyFileFormat         = "22P04"
	pgCodeInvalidTextRepresentation = "22P02"
	pgCodeNumericValueOutOfRange    = "22003"
	pgCodeInvalidDatetimeFormat     = "22007"
	pgCodeDatetimeFieldOverflow     = "22008"
	pgCodeDatatypeMismatch          = "42804"
)

// Classify maps an engine error to a taxonomy sentinel. It returns nil for
// errors outside the taxonomy.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr)
	}

	if isNetworkError(err) || isConnectionError(err) {
		return hiveseed.ErrEngineUnavailable
	}
	return nil
}

func classifyPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgCodeDuplicateSchema, pgCodeDuplicateTable:
		return hiveseed.ErrAlreadyExists
	case pgCodeInvalidSchemaName, pgCodeUndefinedTable:
		return hiveseed.ErrNotFound
	case pgCodeUndefinedFile, pgCodeDuplicateFile:
		return hiveseed.ErrSourceNotFound
	case pgCodeBadCopyFileFormat,
		pgCodeInvalidTextRepresentation,
		pgCodeNumericValueOutOfRange,
		pgCodeInvalidDatetimeFormat,
		pgCodeDatetimeFieldOverflow,
		pgCodeDatatypeMismatch:
		return hiveseed.ErrSchemaMismatch
	}

	// Class 08 - Connection Exception, Class 57 - Operator Intervention
	if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
		return hiveseed.ErrEngineUnavailable
	}

	// COPY FROM PROGRAM reports a missing file through the program's exit status.
	if pgErr.Code == "38000" && strings.Contains(pgErr.Message, "program") {
		return hiveseed.ErrSourceNotFound
	}
	return nil
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

// isConnectionError matches pgconn's connection failure texts.
func isConnectionError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"server closed the connection",
		"unexpected eof",
		"conn closed",
		"conn busy",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
