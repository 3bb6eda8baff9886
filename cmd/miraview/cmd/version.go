package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/miraview/internal/version"
)

var versionJSON bool

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of miraview.",
	Run: func(cmd *cobra.Command, _ []string) {
		if versionJSON {
			fmt.Fprintln(cmd.OutOrStdout(), version.JSON())
			return
		}

		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
