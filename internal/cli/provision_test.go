package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/hiveseed/internal/config"
	"github.com/vvka-141/hiveseed/internal/engine/memory"
	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/internal/logging"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

const postgresManifest = `app_name: Nightly Seed
engine:
  kind: postgres
  connection:
    host: db.internal
    port: 6432
    database: analytics
    username: seeder
namespace: STAGING
table:
  name: ALCOHOL_CONSUMPTION_BY_COUNTRY_2010
  columns:
    - {name: LOCATION, type: STRING}
    - {name: ALCOHOL, type: DOUBLE}
  header_skip: 1
source: /data/alcohol.csv
timeout: 5m
`

// resetFlags restores every flag of cmd to its default and clears Changed.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Value.Type() == "stringSlice" {
			return
		}
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
}

func clearEngineEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"LIVY_URL", "LIVY_USERNAME", "LIVY_PASSWORD",
		"HIVESEED_CONNECTION_STRING", "DATABASE_URL",
		"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
		"PGSSLCERT", "PGSSLKEY", "PGSSLROOTCERT",
		"AWS_REGION", "AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
	} {
		t.Setenv(v, "")
	}
}

func setFlags(t *testing.T, cmd *cobra.Command, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
}

func TestBuildProvisionRun_BuiltInManifest(t *testing.T) {
	resetFlags(t, provisionCmd)
	clearEngineEnv(t)
	t.Setenv("LIVY_URL", "http://spark-master:8998")
	t.Setenv("LIVY_PASSWORD", "pw")

	run, err := buildProvisionRun(provisionCmd, filesystem.NewMemoryFileSystem(), nil, logging.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, hiveseed.EngineLivy, run.engine.Kind)
	assert.Equal(t, "http://spark-master:8998", run.engine.Livy.URL)
	assert.Equal(t, "pw", run.engine.Livy.Password)
	assert.Equal(t, hiveseed.DefaultLivyPollInterval, run.engine.Livy.PollInterval)
	assert.Equal(t, hiveseed.DefaultAppName, run.engine.AppName)

	assert.Equal(t, "PLOTLY", run.provision.Namespace)
	assert.Equal(t, config.DefaultTableName, run.provision.Table.Name)
	assert.Equal(t, config.DefaultSourcePath, run.provision.SourcePath)
	assert.Equal(t, 0, run.provision.Table.HeaderSkip)
	assert.False(t, run.provision.IfNotExists)
	assert.Zero(t, run.timeout)
}

func TestBuildProvisionRun_LivyURLPrecedence(t *testing.T) {
	resetFlags(t, provisionCmd)
	clearEngineEnv(t)
	t.Setenv("LIVY_URL", "http://from-env:8998")
	setFlags(t, provisionCmd, map[string]string{"livy-url": "http://from-flag:8998"})

	run, err := buildProvisionRun(provisionCmd, filesystem.NewMemoryFileSystem(), nil, logging.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:8998", run.engine.Livy.URL)
}

func TestBuildProvisionRun_LivyWithoutURL(t *testing.T) {
	resetFlags(t, provisionCmd)
	clearEngineEnv(t)

	_, err := buildProvisionRun(provisionCmd, filesystem.NewMemoryFileSystem(), nil, logging.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, hiveseed.ExitConfigError, hiveseed.ExitCodeForError(err))
}

func TestBuildProvisionRun_PostgresManifest(t *testing.T) {
	resetFlags(t, provisionCmd)
	clearEngineEnv(t)
	t.Setenv("PGPASSWORD", "secret")

	fsys := filesystem.NewMemoryFileSystem()
	fsys.AddFile("/work/hiveseed.yaml", postgresManifest)

	run, err := buildProvisionRun(provisionCmd, fsys, []string{"/work/hiveseed.yaml"}, logging.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, hiveseed.EnginePostgres, run.engine.Kind)
	require.NotNil(t, run.engine.Connection)
	assert.Equal(t, "db.internal", run.engine.Connection.Host)
	assert.Equal(t, 6432, run.engine.Connection.Port)
	assert.Equal(t, "analytics", run.engine.Connection.Database)
	assert.Equal(t, "seeder", run.engine.Connection.Username)
	assert.Equal(t, "secret", run.engine.Connection.Password)
	assert.Equal(t, "hiveseed", run.engine.Connection.AppName)

	assert.Equal(t, "Nightly Seed", run.provision.AppName)
	assert.Equal(t, "STAGING", run.provision.Namespace)
	assert.Equal(t, hiveseed.TypeDouble, run.provision.Table.Columns[1].Type)
	assert.Equal(t, 1, run.provision.Table.HeaderSkip)
	assert.Equal(t, 5*time.Minute, run.timeout)
}

func TestBuildProvisionRun_FlagsOverrideManifest(t *testing.T) {
	resetFlags(t, provisionCmd)
	clearEngineEnv(t)

	fsys := filesystem.NewMemoryFileSystem()
	fsys.AddFile("/work/hiveseed.yaml", postgresManifest)
	setFlags(t, provisionCmd, map[string]string{
		"namespace":     "PLOTLY",
		"table":         "ALCOHOL",
		"source":        "/other.csv",
		"header-skip":   "0",
		"if-not-exists": "true",
		"app-name":      "Override",
		"timeout":       "0",
		"host":          "127.0.0.1",
		"database":      "seeds",
	})

	run, err := buildProvisionRun(provisionCmd, fsys, []string{"/work/hiveseed.yaml"}, logging.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, "PLOTLY", run.provision.Namespace)
	assert.Equal(t, "ALCOHOL", run.provision.Table.Name)
	assert.Equal(t, "/other.csv", run.provision.SourcePath)
	assert.Equal(t, 0, run.provision.Table.HeaderSkip)
	assert.True(t, run.provision.IfNotExists)
	assert.Equal(t, "Override", run.engine.AppName)
	assert.Zero(t, run.timeout)
	assert.Equal(t, "127.0.0.1", run.engine.Connection.Host)
	assert.Equal(t, "seeds", run.engine.Connection.Database)
}

func TestBuildProvisionRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		args  []string
		want  error
	}{
		{"unknown engine", map[string]string{"engine": "oracle"}, nil, hiveseed.ErrInvalidConfig},
		{"bad namespace", map[string]string{"engine": "livy", "livy-url": "http://x", "namespace": "PL-OTLY"}, nil, hiveseed.ErrInvalidConfig},
		{"negative header skip", map[string]string{"livy-url": "http://x", "header-skip": "-1"}, nil, hiveseed.ErrInvalidConfig},
		{"missing manifest", nil, []string{"/nope/hiveseed.yaml"}, config.ErrConfigNotFound},
		{"connection with granular flags", map[string]string{
			"engine": "postgres", "connection": "postgresql://localhost/postgres", "host": "other",
		}, nil, hiveseed.ErrInvalidConfig},
		{"two cloud providers", map[string]string{"engine": "postgres", "aws": "true", "azure": "true"}, nil, hiveseed.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t, provisionCmd)
			clearEngineEnv(t)
			setFlags(t, provisionCmd, tt.flags)

			_, err := buildProvisionRun(provisionCmd, filesystem.NewMemoryFileSystem(), tt.args, logging.NewNullLogger())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestProvision_EndToEndWithMemoryEngine(t *testing.T) {
	fsys := filesystem.NewMemoryFileSystem()
	fsys.AddFile(config.DefaultSourcePath, "LOC_A,12.5\nLOC_B,8.3\n")
	mem := memory.New(fsys)

	original := openEngine
	defer func() { openEngine = original }()
	openEngine = func(context.Context, hiveseed.EngineConfig, hiveseed.Logger) (hiveseed.Engine, error) {
		return mem, nil
	}

	cfg, err := config.Default().ProvisionConfig()
	require.NoError(t, err)
	run := &provisionRun{
		engine:    hiveseed.EngineConfig{Kind: hiveseed.EngineLivy, Livy: hiveseed.LivyConfig{URL: "http://unused"}},
		provision: cfg,
	}

	require.NoError(t, provision(context.Background(), run, logging.NewNullLogger()))
	rows, ok := mem.Rows("PLOTLY", "ALCOHOL")
	require.True(t, ok)
	assert.Equal(t, []memory.Row{{"LOC_A", float32(12.5)}, {"LOC_B", float32(8.3)}}, rows)

	// The engine was closed, so a second run cannot reuse it.
	err = provision(context.Background(), run, logging.NewNullLogger())
	assert.Equal(t, hiveseed.ExitEngineUnavailable, hiveseed.ExitCodeForError(err))
}

func TestProvision_VerbosityFollowsLogger(t *testing.T) {
	cfg, err := config.Default().ProvisionConfig()
	require.NoError(t, err)

	original := openEngine
	defer func() { openEngine = original }()

	for _, verbose := range []bool{false, true} {
		fsys := filesystem.NewMemoryFileSystem()
		fsys.AddFile(config.DefaultSourcePath, "LOC_A,12.5\n")
		mem := memory.New(fsys)
		openEngine = func(context.Context, hiveseed.EngineConfig, hiveseed.Logger) (hiveseed.Engine, error) {
			return mem, nil
		}

		var out bytes.Buffer
		require.NoError(t, provision(context.Background(), &provisionRun{provision: cfg}, logging.NewConsoleLoggerTo(&out, verbose, false)))
		if verbose {
			assert.Contains(t, out.String(), "Source path: "+config.DefaultSourcePath)
		} else {
			assert.NotContains(t, out.String(), "Source path:")
		}
		assert.Contains(t, out.String(), "Loading Data")
	}
}

func TestProvision_RerunExitsWithAlreadyExists(t *testing.T) {
	fsys := filesystem.NewMemoryFileSystem()
	fsys.AddFile(config.DefaultSourcePath, "LOC_A,12.5\n")
	mem := memory.New(fsys)

	cfg, err := config.Default().ProvisionConfig()
	require.NoError(t, err)
	for _, stmt := range hiveseed.ProvisionPlan(cfg) {
		require.NoError(t, mem.Execute(context.Background(), stmt))
	}

	original := openEngine
	defer func() { openEngine = original }()
	openEngine = func(context.Context, hiveseed.EngineConfig, hiveseed.Logger) (hiveseed.Engine, error) {
		return mem, nil
	}

	err = provision(context.Background(), &provisionRun{provision: cfg}, logging.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, hiveseed.ExitAlreadyExists, hiveseed.ExitCodeForError(err))
	assert.Contains(t, err.Error(), "Database 'plotly' already exists")
}

func TestProvision_OpenFailure(t *testing.T) {
	original := openEngine
	defer func() { openEngine = original }()
	openEngine = func(context.Context, hiveseed.EngineConfig, hiveseed.Logger) (hiveseed.Engine, error) {
		return nil, hiveseed.NewEngineError("create session", "", hiveseed.ErrEngineUnavailable, errors.New("dial tcp: connection refused"))
	}

	err := provision(context.Background(), &provisionRun{engine: hiveseed.EngineConfig{Kind: hiveseed.EngineLivy}}, logging.NewNullLogger())
	require.Error(t, err)
	assert.Equal(t, hiveseed.ExitEngineUnavailable, hiveseed.ExitCodeForError(err))
	assert.Contains(t, err.Error(), "failed to open livy engine")
}

func TestWritePlan(t *testing.T) {
	cfg, err := config.Default().ProvisionConfig()
	require.NoError(t, err)

	d, err := selectDialect("", "livy")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, d, cfg))
	assert.Equal(t, "CREATE DATABASE PLOTLY;\n"+
		"USE PLOTLY;\n"+
		"CREATE TABLE ALCOHOL (LOCATION STRING, ALCOHOL FLOAT) ROW FORMAT DELIMITED FIELDS TERMINATED BY ',';\n"+
		"LOAD DATA LOCAL INPATH '/plotly_datasets/2010_alcohol_consumption_by_country.csv' OVERWRITE INTO TABLE ALCOHOL;\n",
		buf.String())

	d, err = selectDialect("postgres", "livy")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, writePlan(&buf, d, cfg))
	assert.Contains(t, buf.String(), "CREATE SCHEMA PLOTLY;\n")
	assert.Contains(t, buf.String(), "SET search_path TO PLOTLY;\n")

	_, err = selectDialect("oracle", "livy")
	assert.ErrorIs(t, err, hiveseed.ErrInvalidConfig)
}
