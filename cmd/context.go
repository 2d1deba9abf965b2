package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "boxsync"
	contextDir     = "./.tmp"
	defaultServer  = "http://localhost:4030"
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

// Context holds the admin api a CLI talks to.
type Context struct {
	Server string `mapstructure:"server"`
}

// saves the context info to the config file in ./.tmp
func setContextCommand() *cobra.Command {
	var server string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if server == "" {
				color.Red(`missing: --server`)
				return
			}

			if err := writeContext(Context{Server: server}); err != nil {
				fmt.Println("error writing config file: ", err)
			} else {
				fmt.Println("context saved")
			}
		},
	}

	command.Flags().StringVarP(&server, "server", "s", "", "admin api url")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			printField("Server", readContext().Server)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeContext(Context{Server: defaultServer}); err != nil {
				fmt.Println("error writing config file: ", err)
			}
		},
	}

	return command
}

func contextViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.AddConfigPath(contextDir)
	v.SetConfigType("yml")
	return v
}

func writeContext(context Context) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return err
	}

	v := contextViper()
	v.Set("context", map[string]string{"server": context.Server})
	return v.WriteConfigAs(filepath.Join(contextDir, configFileName+".yml"))
}

func readContext() Context {
	ctx := Context{Server: defaultServer}

	v := contextViper()
	if err := v.ReadInConfig(); err != nil {
		return ctx
	}

	if err := v.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}
	if ctx.Server == "" {
		ctx.Server = defaultServer
	}

	return ctx
}
