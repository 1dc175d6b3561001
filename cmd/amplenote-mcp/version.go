package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No settings are needed, so a broken config does not hide the version.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		if Commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "amplenote-mcp %s (%s)\n", Version, Commit)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "amplenote-mcp %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
