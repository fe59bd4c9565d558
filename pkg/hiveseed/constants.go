package hiveseed

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess           = 0  // Provisioning completed successfully
	ExitGeneralError      = 1  // Unknown or unclassified error
	ExitUsageError        = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic             = 3  // Internal panic (unexpected crash)
	ExitConfigError       = 10 // Invalid manifest, flags or parameters
	ExitEngineUnavailable = 11 // Failed to reach or submit to the engine
	ExitAlreadyExists     = 12 // Namespace or table already exists
	ExitNotFound          = 13 // Namespace or table missing
	ExitSourceNotFound    = 14 // Load path unreadable
	ExitSchemaMismatch    = 15 // File shape incompatible with the schema
)

const (
	// DefaultNamespace is the namespace the original bootstrap job created.
	DefaultNamespace = "PLOTLY"

	// DefaultAppName labels the engine session for observability.
	DefaultAppName = "Plotly Exports"

	// DefaultDelimiter is the field separator of the backing file.
	DefaultDelimiter = ","

	// HeaderSkipProperty is the Hive table property holding the header-skip count.
	HeaderSkipProperty = "skip.header.line.count"

	// MaxIdentifierLength bounds namespace, table and column names.
	MaxIdentifierLength = 128

	// DefaultLivyPollInterval is how often Livy session and statement state is polled.
	DefaultLivyPollInterval = 1 * time.Second

	// DefaultLivySessionKind is the Livy interpreter kind used for new sessions.
	DefaultLivySessionKind = "spark"

	// DefaultPostgresPort is used when no port is configured for the postgres engine.
	DefaultPostgresPort = 5432
)
