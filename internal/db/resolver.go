package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/hiveseed/internal/config"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD or a connection string.
type GranularConnFlags struct {
	Host        string
	Port        int
	Username    string
	Database    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is excluded because it may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// CloudFlags selects a cloud IAM authentication method.
// Secrets (AZURE_CLIENT_SECRET) are only read from the environment.
type CloudFlags struct {
	AWS            bool
	AWSRegion      string
	Google         bool
	GoogleInstance string
	Azure          bool
	AzureTenantID  string
	AzureClientID  string
}

// selected returns how many auth methods the flags ask for.
func (c *CloudFlags) selected() int {
	n := 0
	for _, on := range []bool{c.AWS, c.Google, c.Azure} {
		if on {
			n++
		}
	}
	return n
}

// EnvVars represents PostgreSQL standard environment variables plus the
// cloud SDK variables hiveseed reads.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	HIVESEED_CONNECTION_STRING string
	DATABASE_URL               string
	PGHOST                     string
	PGPORT                     string
	PGUSER                     string
	PGPASSWORD                 string
	PGDATABASE                 string
	PGSSLMODE                  string
	PGSSLCERT                  string
	PGSSLKEY                   string
	PGSSLROOTCERT              string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads the variables listed in EnvVars.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		HIVESEED_CONNECTION_STRING: os.Getenv("HIVESEED_CONNECTION_STRING"),
		DATABASE_URL:               os.Getenv("DATABASE_URL"),
		PGHOST:                     os.Getenv("PGHOST"),
		PGPORT:                     os.Getenv("PGPORT"),
		PGUSER:                     os.Getenv("PGUSER"),
		PGPASSWORD:                 os.Getenv("PGPASSWORD"),
		PGDATABASE:                 os.Getenv("PGDATABASE"),
		PGSSLMODE:                  os.Getenv("PGSSLMODE"),
		PGSSLCERT:                  os.Getenv("PGSSLCERT"),
		PGSSLKEY:                   os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:              os.Getenv("PGSSLROOTCERT"),
		AWS_REGION:                 os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:            os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:            os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:        os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves connection parameters for the postgres
// engine. Sources, highest first:
//
//  1. --connection flag
//  2. $HIVESEED_CONNECTION_STRING, then $DATABASE_URL (only without granular flags)
//  3. granular flags, then PG* variables, then the manifest, then defaults
//
// -d overrides the database of a connection string. The auth method comes
// from cloud flags, then the manifest's auth_method, then the presence of
// AZURE_TENANT_ID/AZURE_CLIENT_ID. Certificate auth is inferred when a
// client certificate is configured.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	manifest *config.ConnectionConfig,
) (*hiveseed.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	if manifest == nil {
		manifest = &config.ConnectionConfig{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf("cannot specify both --connection and granular flags (-h, -p, -U, --sslmode): %w", hiveseed.ErrInvalidConfig)
	}
	if cloudFlags.selected() > 1 {
		return nil, fmt.Errorf("--aws, --google and --azure are mutually exclusive: %w", hiveseed.ErrInvalidConfig)
	}

	var (
		cfg *hiveseed.ConnectionConfig
		err error
	)
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.HIVESEED_CONNECTION_STRING != "":
		cfg, err = resolveFromConnectionString(envVars.HIVESEED_CONNECTION_STRING, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, manifest)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}

	if err := applyAuth(cfg, cloudFlags, envVars, manifest); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromConnectionString(connStr string, envVars *EnvVars) (*hiveseed.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if cfg.Password == "" {
		cfg.Password = envVars.PGPASSWORD
	}
	return cfg, nil
}

// resolveFromGranularParams applies flag > environment > manifest > default
// for every field.
func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc *config.ConnectionConfig) (*hiveseed.ConnectionConfig, error) {
	cfg := &hiveseed.ConnectionConfig{
		AuthMethod:       hiveseed.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value %q: must be an integer: %w", env.PGPORT, hiveseed.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = hiveseed.DefaultPostgresPort
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = env.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database, "postgres")
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, "prefer")
	cfg.SSLCert = firstNonEmpty(flags.SSLCert, env.PGSSLCERT, pc.SSLCert)
	cfg.SSLKey = firstNonEmpty(flags.SSLKey, env.PGSSLKEY, pc.SSLKey)
	cfg.SSLRootCert = firstNonEmpty(flags.SSLRootCert, env.PGSSLROOTCERT, pc.SSLRootCert)

	return cfg, nil
}

func applyAuth(cfg *hiveseed.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc *config.ConnectionConfig) error {
	method, err := hiveseed.ParseAuthMethod(pc.AuthMethod)
	if err != nil {
		return err
	}
	explicit := pc.AuthMethod != ""

	switch {
	case flags.AWS:
		method, explicit = hiveseed.AuthMethodAWSIAM, true
	case flags.Google:
		method, explicit = hiveseed.AuthMethodGoogleIAM, true
	case flags.Azure:
		method, explicit = hiveseed.AuthMethodAzureEntraID, true
	}

	tenantID := firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
	if !explicit {
		switch {
		case flags.AzureTenantID != "" || flags.AzureClientID != "" || env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != "":
			method = hiveseed.AuthMethodAzureEntraID
		case cfg.SSLCert != "":
			method = hiveseed.AuthMethodCertificate
		}
	}

	cfg.AuthMethod = method
	switch method {
	case hiveseed.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case hiveseed.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	case hiveseed.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
