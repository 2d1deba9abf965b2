package cmd

import (
	"github.com/emrgen/boxsync/internal/config"
	"github.com/emrgen/boxsync/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd())
}

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "poll the configured boxes and serve the admin api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.HTTPPort = port
			}
			return server.NewServer(cfg).Start()
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "admin api port (default $HTTP_PORT)")

	return command
}
