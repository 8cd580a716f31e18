package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/workbenchdata/twitter-fetch/internal/api"
	"github.com/workbenchdata/twitter-fetch/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fetch worker's HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return api.Start(ctx, config.Read())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
