package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OptionalManifestPath accepts zero or one [manifest] argument.
// Without one, ./hiveseed.yaml is used if present, else the built-in manifest.
func OptionalManifestPath(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf(`accepts at most 1 arg(s), received %d

Usage: %s

Example:
  %s ./hiveseed.yaml`, len(args), cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}
