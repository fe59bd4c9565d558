// Package testing holds helpers for integration tests that need a
// PostgreSQL server.
package testing

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/hiveseed/internal/testinfra"
)

// TestConnEnv names an existing server to use instead of a container.
const TestConnEnv = "HIVESEED_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainer     *testinfra.PostgresContainer
	testContainerErr  error
)

func getOrStartTestContainer() (*testinfra.PostgresContainer, error) {
	testContainerOnce.Do(func() {
		testContainer, testContainerErr = testinfra.StartPostgres(context.Background())
	})
	return testContainer, testContainerErr
}

// TestDatabase is the server an integration test runs against.
type TestDatabase struct {
	ConnString string
	container  *testinfra.PostgresContainer
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase returns the test server, skipping under -short or when
// neither $HIVESEED_TEST_CONN nor Docker is available.
func RequireDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	SkipIfShort(t)

	if connString := os.Getenv(TestConnEnv); connString != "" {
		return &TestDatabase{ConnString: connString}
	}

	ctr, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnv, err)
	}
	return &TestDatabase{ConnString: ctr.ConnString, container: ctr}
}

// StageSource places a source file on the database server and returns its
// path there. Only the managed container supports this; tests using
// $HIVESEED_TEST_CONN are skipped.
func (d *TestDatabase) StageSource(t *testing.T, name, content string) string {
	t.Helper()

	if d.container == nil {
		t.Skipf("staging source files needs the managed container (unset %s)", TestConnEnv)
	}
	p := path.Join("/tmp", "hiveseed-"+uuid.NewString()+"-"+name)
	if err := d.container.StageFile(context.Background(), p, []byte(content)); err != nil {
		t.Fatalf("stage source: %v", err)
	}
	return p
}

// UniqueNamespace returns a fresh schema name and drops the schema when the
// test ends.
func (d *TestDatabase) UniqueNamespace(t *testing.T) string {
	t.Helper()

	name := "hs_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	t.Cleanup(func() {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, d.ConnString)
		if err != nil {
			t.Logf("cleanup connect: %v", err)
			return
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", name)); err != nil {
			t.Logf("cleanup drop schema %s: %v", name, err)
		}
	})
	return name
}
