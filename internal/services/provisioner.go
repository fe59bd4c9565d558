// Package services implements the provisioning workflow on top of an engine
// handle.
package services

import (
	"context"
	"time"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// ProvisionService implements hiveseed.Provisioner.
// Thread-Safety: NOT safe for concurrent use; statements are issued one at
// a time on the engine it was built with.
type ProvisionService struct {
	engine hiveseed.Engine
	logger hiveseed.Logger
}

// NewProvisionService creates a ProvisionService over an open engine.
// It panics on nil dependencies; those are wiring bugs, not runtime
// conditions.
func NewProvisionService(engine hiveseed.Engine, logger hiveseed.Logger) *ProvisionService {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ProvisionService{engine: engine, logger: logger}
}

// EnsureNamespace creates the namespace.
func (s *ProvisionService) EnsureNamespace(ctx context.Context, name string, ifNotExists bool) error {
	return s.engine.Execute(ctx, hiveseed.CreateNamespace{Name: name, IfNotExists: ifNotExists})
}

// SelectNamespace makes name the default namespace for later statements.
func (s *ProvisionService) SelectNamespace(ctx context.Context, name string) error {
	return s.engine.Execute(ctx, hiveseed.UseNamespace{Name: name})
}

// DeclareTable creates the table in the selected namespace.
func (s *ProvisionService) DeclareTable(ctx context.Context, table hiveseed.TableSpec, ifNotExists bool) error {
	return s.engine.Execute(ctx, hiveseed.CreateTable{Table: table, IfNotExists: ifNotExists})
}

// LoadOverwrite replaces the table contents with the file at sourcePath.
func (s *ProvisionService) LoadOverwrite(ctx context.Context, table hiveseed.TableSpec, sourcePath string) error {
	format := table.Format()
	return s.engine.Execute(ctx, hiveseed.LoadData{
		SourcePath: sourcePath,
		Table:      table.Name,
		Overwrite:  true,
		Format:     &format,
	})
}

// stepTitles are the progress banners logged before each plan statement.
var stepTitles = map[hiveseed.StatementKind]string{
	hiveseed.KindCreateNamespace: "Creating Namespace",
	hiveseed.KindUseNamespace:    "Selecting Namespace",
	hiveseed.KindCreateTable:     "Declaring Table",
	hiveseed.KindLoadData:        "Loading Data",
}

// Provision validates config and issues hiveseed.ProvisionPlan in order:
// ensure, select, declare, load. The first failure is returned; earlier
// steps stay applied.
func (s *ProvisionService) Provision(ctx context.Context, config hiveseed.ProvisionConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	start := time.Now()
	s.logger.Verbose("Provisioning %s.%s for %q", config.Namespace, config.Table.Name, config.AppName)

	for _, stmt := range hiveseed.ProvisionPlan(config) {
		s.logger.Step(stepTitle(stmt.Kind()))
		if load, ok := stmt.(hiveseed.LoadData); ok {
			s.logger.Verbose("Source path: %s", load.SourcePath)
		}
		if err := s.engine.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	s.reportRowCount(ctx, config.Table.Name)
	s.logger.Info("✓ Provisioned %s.%s in %s", config.Namespace, config.Table.Name, time.Since(start).Round(time.Millisecond))
	return nil
}

func stepTitle(kind hiveseed.StatementKind) string {
	if title, ok := stepTitles[kind]; ok {
		return title
	}
	return kind.String()
}

func (s *ProvisionService) reportRowCount(ctx context.Context, table string) {
	counter, ok := s.engine.(hiveseed.RowCounter)
	if !ok {
		return
	}
	n, err := counter.CountRows(ctx, table)
	if err != nil {
		s.logger.Verbose("Could not count rows of %s: %v", table, err)
		return
	}
	s.logger.Info("Loaded %d row(s) into %s", n, table)
}

var _ hiveseed.Provisioner = (*ProvisionService)(nil)
