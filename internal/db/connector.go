// Package db opens PostgreSQL connection pools for the postgres engine.
//
// NewConnector picks an implementation by hiveseed.AuthMethod: plain
// credentials and client certificates go through StandardConnector, AWS
// IAM and Azure Entra ID through TokenBasedConnector, Google Cloud SQL IAM
// through GoogleCloudSQLConnector. Connecting is attempted once; a failure
// wraps hiveseed.ErrEngineUnavailable.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns covers the pinned engine connection plus one spare.
	DefaultMaxConns = 2

	DefaultMinConns = 1

	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger hiveseed.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("server notice: %s", notice.Message)
	}
}

// openPool parses connStr, opens a pool and pings it.
func openPool(ctx context.Context, connStr string, cfg *hiveseed.ConnectionConfig, logger hiveseed.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, hiveseed.ErrInvalidConfig)
	}
	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	return pool, nil
}

// StandardConnector connects with username/password or client certificates.
type StandardConnector struct {
	config *hiveseed.ConnectionConfig
	logger hiveseed.Logger
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *hiveseed.ConnectionConfig, logger hiveseed.Logger) *StandardConnector {
	return &StandardConnector{config: config, logger: logger}
}

// Connect opens and pings a pool.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Connecting to %s:%d/%s as %s", c.config.Host, c.config.Port, c.config.Database, c.config.Username)
	return openPool(ctx, BuildConnectionString(c.config), c.config, c.logger)
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *hiveseed.ConnectionConfig, logger hiveseed.Logger) (hiveseed.Connector, error) {
	switch config.AuthMethod {
	case hiveseed.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case hiveseed.AuthMethodCertificate:
		if config.SSLCert == "" || config.SSLKey == "" {
			return nil, fmt.Errorf("certificate auth requires --sslcert and --sslkey: %w", hiveseed.ErrInvalidConfig)
		}
		return NewStandardConnector(config, logger), nil
	case hiveseed.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case hiveseed.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case hiveseed.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, hiveseed.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError adds a hint to raw pgx connection errors and marks
// them as hiveseed.ErrEngineUnavailable.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf("connection refused to %s (is PostgreSQL running? try: pg_isready -h %s -p %d)", addr, host, port)
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		hint = fmt.Sprintf("cannot resolve host %q", host)
	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf("password authentication failed for database %q (check $PGPASSWORD or the connection string)", database)
	case strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist (create it first: createdb %s)", database, database)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf("connection timed out to %s", addr)
	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = "SSL/TLS connection error (check --sslmode, --sslcert and --sslkey)"
	case strings.Contains(errStr, "too many connections"):
		hint = fmt.Sprintf("too many connections to database %q", database)
	default:
		hint = "failed to connect to database"
	}

	return fmt.Errorf("%s: %w", hint, hiveseed.NewEngineError("connect", "", hiveseed.ErrEngineUnavailable, err))
}
