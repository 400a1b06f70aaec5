package cmd

import (
	"fmt"

	"cardiorisk/ml"
	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cardiorisk", version, "schema", ml.SchemaVersion)
	},
}
