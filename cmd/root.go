package cmd

import (
	"os"

	"github.com/emrgen/boxsync/internal/config"
	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boxsync",
	Short: "peer to peer image box synchronization",
	Example: `boxsync serve
boxsync db migrate
boxsync box add -n <name> -u <base-url>
boxsync box list
boxsync box remove -n <name>
boxsync inbox list
boxsync delete -l <level> -i <id>
boxsync context set -s <admin-url>
boxsync status`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if env := os.Getenv("LOG_LEVEL"); env != "" {
				level = env
			}
		}
		config.SetupLogging(level)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(contextCommand)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
