package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/hiveseed/internal/db"
	"github.com/vvka-141/hiveseed/internal/engine"
	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/internal/logging"
	"github.com/vvka-141/hiveseed/internal/services"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

var provisionCmd = &cobra.Command{
	Use:   "provision [manifest]",
	Short: "Create the namespace and table and load the source file",
	Long: `Provision runs one bootstrap:

1. CREATE DATABASE <namespace>
2. USE <namespace>
3. CREATE TABLE <table> ... ROW FORMAT DELIMITED FIELDS TERMINATED BY '<d>'
4. LOAD DATA LOCAL INPATH '<source>' OVERWRITE INTO TABLE <table>

The first failure stops the run; nothing is rolled back. A second run fails
because the namespace already exists unless --if-not-exists is given.

Arguments:
  manifest    hiveseed.yaml, or a directory holding one (optional)
              Without it ./hiveseed.yaml is used, or the built-in manifest

Engines:
  livy        Apache Livy server (--livy-url or $LIVY_URL; $LIVY_USERNAME
              and $LIVY_PASSWORD enable basic auth)
  postgres    PostgreSQL-compatible server; namespaces become schemas and
              the source is read server-side with COPY

Password Authentication:
  Passwords are NOT accepted as CLI flags. Use $PGPASSWORD, .pgpass,
  a connection string, or $LIVY_PASSWORD.

Examples:
  # Reproduce the original bootstrap against Livy
  hiveseed provision --livy-url http://spark-master:8998

  # Use a manifest
  hiveseed provision ./hiveseed.yaml

  # Load into PostgreSQL on RDS with IAM authentication
  hiveseed provision --engine postgres -h mydb.rds.amazonaws.com -U admin -d analytics --aws`,
	Args: OptionalManifestPath,
	RunE: runProvision,
}

type provisionFlagValues struct {
	engine, livyURL                               string
	connection, host, username, database, sslMode string
	port                                          int
	aws                                           bool
	awsRegion                                     string
	google                                        bool
	googleInstance                                string
	azure                                         bool
	azureTenantID, azureClientID                  string
	timeout                                       time.Duration
	table                                         tableFlagValues
}

var provisionFlags provisionFlagValues

// openEngine is replaced in tests.
var openEngine = engine.Open

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().StringVar(&provisionFlags.engine, "engine", "",
		"Engine: livy|postgres (default: manifest engine.kind, else livy)")
	provisionCmd.Flags().StringVar(&provisionFlags.livyURL, "livy-url", "",
		"Livy server URL\n"+
			"Precedence: --livy-url > $LIVY_URL > manifest engine.livy.url")

	// Connection string flag (mutually exclusive with granular flags)
	provisionCmd.Flags().StringVar(&provisionFlags.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format) for the postgres engine.\n"+
			"Mutually exclusive with granular flags (--host, --port, --username).\n"+
			"Alternative: HIVESEED_CONNECTION_STRING or DATABASE_URL environment variable.")

	// Granular connection flags (PostgreSQL standard)
	provisionCmd.Flags().StringVarP(&provisionFlags.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > manifest > localhost")
	provisionCmd.Flags().IntVarP(&provisionFlags.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > manifest > 5432")
	provisionCmd.Flags().StringVarP(&provisionFlags.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	provisionCmd.Flags().StringVarP(&provisionFlags.database, "database", "d", "",
		"PostgreSQL database holding the namespace schema (default: $PGDATABASE or postgres)")
	provisionCmd.Flags().StringVar(&provisionFlags.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	// Cloud IAM flags
	provisionCmd.Flags().BoolVar(&provisionFlags.aws, "aws", false,
		"Enable AWS IAM database authentication (uses the default AWS credential chain)")
	provisionCmd.Flags().StringVar(&provisionFlags.awsRegion, "aws-region", "",
		"AWS region of the RDS instance (overrides $AWS_REGION)")
	provisionCmd.Flags().BoolVar(&provisionFlags.google, "google", false,
		"Enable Google Cloud SQL IAM authentication")
	provisionCmd.Flags().StringVar(&provisionFlags.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	provisionCmd.Flags().BoolVar(&provisionFlags.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	provisionCmd.Flags().StringVar(&provisionFlags.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	provisionCmd.Flags().StringVar(&provisionFlags.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")

	provisionCmd.Flags().DurationVar(&provisionFlags.timeout, "timeout", 0,
		"Overall timeout, 0 waits indefinitely (overrides manifest timeout)\n"+
			"Examples: 30s, 5m, 1h30m")

	addTableFlags(provisionCmd, &provisionFlags.table)
}

// provisionRun is everything one provision invocation needs.
type provisionRun struct {
	engine    hiveseed.EngineConfig
	provision hiveseed.ProvisionConfig
	timeout   time.Duration
}

// buildProvisionRun merges manifest, environment and flags.
func buildProvisionRun(cmd *cobra.Command, fsys filesystem.FileSystemProvider, args []string, logger hiveseed.Logger) (*provisionRun, error) {
	m, err := loadManifest(fsys, args)
	if err != nil {
		return nil, err
	}
	applyTableFlags(cmd, &provisionFlags.table, m)

	provisionCfg, err := m.ProvisionConfig()
	if err != nil {
		return nil, err
	}

	kind, err := hiveseed.ParseEngineKind(firstNonEmpty(provisionFlags.engine, m.Engine.Kind))
	if err != nil {
		return nil, err
	}

	timeout := provisionFlags.timeout
	if !cmd.Flags().Changed("timeout") {
		if timeout, err = m.TimeoutDuration(); err != nil {
			return nil, err
		}
	}
	if timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative: %w", hiveseed.ErrInvalidConfig)
	}

	engineCfg := hiveseed.EngineConfig{Kind: kind, AppName: provisionCfg.AppName}
	switch kind {
	case hiveseed.EngineLivy:
		if engineCfg.Livy, err = resolveLivy(provisionFlags.livyURL, m); err != nil {
			return nil, err
		}
		logger.Verbose("Engine: livy at %s (session kind %s)", engineCfg.Livy.URL, engineCfg.Livy.SessionKind)
	case hiveseed.EnginePostgres:
		granular := &db.GranularConnFlags{
			Host:     provisionFlags.host,
			Port:     provisionFlags.port,
			Username: provisionFlags.username,
			Database: provisionFlags.database,
			SSLMode:  provisionFlags.sslMode,
		}
		cloud := &db.CloudFlags{
			AWS:            provisionFlags.aws,
			AWSRegion:      provisionFlags.awsRegion,
			Google:         provisionFlags.google,
			GoogleInstance: provisionFlags.googleInstance,
			Azure:          provisionFlags.azure,
			AzureTenantID:  provisionFlags.azureTenantID,
			AzureClientID:  provisionFlags.azureClientID,
		}
		if engineCfg.Connection, err = resolveConnection(provisionFlags.connection, granular, cloud, m); err != nil {
			return nil, err
		}
		c := engineCfg.Connection
		logger.Verbose("Connection resolved:")
		logger.Verbose("  Host: %s", c.Host)
		logger.Verbose("  Port: %d", c.Port)
		logger.Verbose("  User: %s", c.Username)
		logger.Verbose("  Database: %s", c.Database)
		logger.Verbose("  SSL Mode: %s", c.SSLMode)
		logger.Verbose("  Auth Method: %s", c.AuthMethod)
	}

	if err := engineCfg.Validate(); err != nil {
		return nil, err
	}
	return &provisionRun{engine: engineCfg, provision: provisionCfg, timeout: timeout}, nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	run, err := buildProvisionRun(cmd, filesystem.NewOSFileSystem(), args, logger)
	if err != nil {
		return err
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if run.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), run.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	// Handle interrupt signals (Ctrl+C, SIGTERM) by cancelling the run
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling provisioning...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return provision(ctx, run, logger)
}

// provision opens the engine, runs the provisioner and closes the engine.
func provision(ctx context.Context, run *provisionRun, logger hiveseed.Logger) error {
	eng, err := openEngine(ctx, run.engine, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s engine: %w", run.engine.Kind, err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			logger.Error("failed to close engine: %v", cerr)
		}
	}()

	provisioner := services.NewProvisionService(eng, logger)
	if err := provisioner.Provision(ctx, run.provision); err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}
	return nil
}
