package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hiveseed",
	Short: "Provision and bulk-load a Hive table from a delimited file",
	Long: `hiveseed creates a namespace, declares one delimited-text table in it and
loads a file into that table, issuing exactly these statements in order:

  CREATE DATABASE <namespace>
  USE <namespace>
  CREATE TABLE <table> (...) ROW FORMAT DELIMITED FIELDS TERMINATED BY '<d>'
  LOAD DATA LOCAL INPATH '<source>' OVERWRITE INTO TABLE <table>

Statements run through Apache Livy (Spark SQL with Hive support) or a
PostgreSQL-compatible server. A .env file in the working directory is
loaded before flags and environment variables are resolved.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid manifest, flags or parameters
  11 - Engine unavailable (connection or submission failed)
  12 - Namespace or table already exists
  13 - Namespace or table not found
  14 - Source file not found
  15 - Source file does not match the table schema`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal.
		_ = godotenv.Load()
	},
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is the PostgreSQL host flag, so help is long-form only.
	rootCmd.PersistentFlags().Bool("help", false, "Help for hiveseed")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
