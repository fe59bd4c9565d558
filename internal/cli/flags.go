package cli

import (
	"github.com/spf13/cobra"

	"github.com/vvka-141/hiveseed/internal/config"
)

// tableFlagValues override the namespace and table sections of the manifest.
type tableFlagValues struct {
	appName     string
	namespace   string
	table       string
	source      string
	headerSkip  int
	ifNotExists bool
}

func addTableFlags(cmd *cobra.Command, f *tableFlagValues) {
	cmd.Flags().StringVar(&f.appName, "app-name", "",
		"Application name labelling the engine session (default \"Plotly Exports\")")
	cmd.Flags().StringVar(&f.namespace, "namespace", "",
		"Namespace (Hive database) to create (default PLOTLY)")
	cmd.Flags().StringVar(&f.table, "table", "",
		"Table name (overrides table.name in the manifest)")
	cmd.Flags().StringVar(&f.source, "source", "",
		"Source file path, local to the engine's execution node")
	cmd.Flags().IntVar(&f.headerSkip, "header-skip", 0,
		"Header lines to skip when reading the source file")
	cmd.Flags().BoolVar(&f.ifNotExists, "if-not-exists", false,
		"Tolerate an existing namespace and table instead of failing")
}

// applyTableFlags copies explicitly set flags onto the manifest.
func applyTableFlags(cmd *cobra.Command, f *tableFlagValues, m *config.Manifest) {
	if f.appName != "" {
		m.AppName = f.appName
	}
	if f.namespace != "" {
		m.Namespace = f.namespace
	}
	if f.table != "" {
		m.Table.Name = f.table
	}
	if f.source != "" {
		m.Source = f.source
	}
	if cmd.Flags().Changed("header-skip") {
		m.Table.HeaderSkip = f.headerSkip
	}
	if cmd.Flags().Changed("if-not-exists") {
		m.IfNotExists = f.ifNotExists
	}
}
