package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application version.
// The actual version information is managed by the root command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of switchboard",
		Long:  `All software has versions. This is switchboard's.`,
		Run: func(cmd *cobra.Command, args []string) {
			// rootCmd.Version is set in root.go from the build-time variable.
			fmt.Fprintf(cmd.OutOrStdout(), "switchboard version %s\n", rootCmd.Version)
		},
	}
}
