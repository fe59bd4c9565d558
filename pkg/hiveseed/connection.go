package hiveseed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EngineKind selects the engine implementation.
type EngineKind string

const (
	// EngineLivy submits Spark SQL through an Apache Livy server.
	EngineLivy EngineKind = "livy"

	// EnginePostgres runs against a PostgreSQL-compatible server.
	EnginePostgres EngineKind = "postgres"
)

// ParseEngineKind normalizes an engine name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch k := EngineKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EngineLivy, EnginePostgres:
		return k, nil
	case "postgresql", "pg":
		return EnginePostgres, nil
	case "spark", "hive":
		return EngineLivy, nil
	default:
		return "", fmt.Errorf("unknown engine %q (expected livy or postgres): %w", s, ErrInvalidConfig)
	}
}

// EngineConfig holds everything needed to open an engine handle.
type EngineConfig struct {
	Kind       EngineKind
	AppName    string
	Livy       LivyConfig
	Connection *ConnectionConfig
}

// LivyConfig describes an Apache Livy endpoint.
type LivyConfig struct {
	// URL is the Livy server base URL, e.g. http://localhost:8998.
	URL string

	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string

	// SessionKind is the interpreter kind of the session ("spark" by default).
	SessionKind string

	// PollInterval controls session and statement state polling.
	PollInterval time.Duration

	// Conf is passed through as Spark configuration on session creation.
	Conf map[string]string
}

// Validate checks the engine configuration for the selected kind.
func (c *EngineConfig) Validate() error {
	switch c.Kind {
	case EngineLivy:
		if c.Livy.URL == "" {
			return fmt.Errorf("livy engine requires a URL (--livy-url or $LIVY_URL): %w", ErrInvalidConfig)
		}
	case EnginePostgres:
		if c.Connection == nil {
			return fmt.Errorf("postgres engine requires connection settings: %w", ErrInvalidConfig)
		}
		if !c.Connection.AuthMethod.IsValid() {
			return fmt.Errorf("invalid auth method %v: %w", c.Connection.AuthMethod, ErrUnsupportedAuthMethod)
		}
	default:
		return fmt.Errorf("unknown engine %q: %w", c.Kind, ErrInvalidConfig)
	}
	return nil
}

// ConnectionConfig represents parsed connection parameters for the postgres engine.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate paths (mTLS)
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AWS IAM database authentication.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps manifest spellings ("standard", "aws", "google",
// "azure", "certificate") to an AuthMethod. Empty means standard.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "certificate", "cert", "mtls":
		return AuthMethodCertificate, nil
	case "aws", "aws_iam", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "google_iam", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure_entra_id", "entra", "entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return 0, fmt.Errorf("unknown auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// Connector is a unified interface for establishing database connections.
// Different implementations handle various authentication methods
// (standard credentials, certificates, cloud IAM, etc.).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}
