// Package cli provides the command-line interface for twitter-fetch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "twitter-fetch",
	Short: "Incrementally fetch tweets into a versioned table",
	Long: "twitter-fetch walks a user timeline, search query, or Twitter list, " +
		"merges new tweets into an accumulated table without losing data on " +
		"transient failures, and reports a version token when the output changes.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("twitter-fetch %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
