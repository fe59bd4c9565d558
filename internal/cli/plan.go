package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vvka-141/hiveseed/internal/dialect"
	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

var planCmd = &cobra.Command{
	Use:   "plan [manifest]",
	Short: "Print the statements provision would issue",
	Long: `Plan renders the provisioning statements in execution order without
contacting an engine.

Examples:
  # HiveQL for the built-in manifest
  hiveseed plan

  # What the postgres engine would run
  hiveseed plan ./hiveseed.yaml --dialect postgres`,
	Args: OptionalManifestPath,
	RunE: runPlan,
}

type planFlagValues struct {
	dialect string
	table   tableFlagValues
}

var planFlags planFlagValues

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planFlags.dialect, "dialect", "",
		"Dialect: hive|postgres (default: the manifest engine's dialect)")
	addTableFlags(planCmd, &planFlags.table)
}

func runPlan(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(filesystem.NewOSFileSystem(), args)
	if err != nil {
		return err
	}
	applyTableFlags(cmd, &planFlags.table, m)

	cfg, err := m.ProvisionConfig()
	if err != nil {
		return err
	}

	d, err := selectDialect(planFlags.dialect, m.Engine.Kind)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), d, cfg)
}

func selectDialect(name, engineKind string) (hiveseed.Dialect, error) {
	if name != "" {
		return dialect.ByName(name)
	}
	kind, err := hiveseed.ParseEngineKind(engineKind)
	if err != nil {
		return nil, err
	}
	return dialect.ForEngine(kind)
}

func writePlan(w io.Writer, d hiveseed.Dialect, cfg hiveseed.ProvisionConfig) error {
	statements, err := dialect.RenderPlan(d, hiveseed.ProvisionPlan(cfg))
	if err != nil {
		return err
	}
	for _, s := range statements {
		if _, err := fmt.Fprintf(w, "%s;\n", s); err != nil {
			return err
		}
	}
	return nil
}
