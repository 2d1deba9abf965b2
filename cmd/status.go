package cmd

import (
	"os"
	"strconv"

	"github.com/emrgen/boxsync"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd())
}

func statusCmd() *cobra.Command {
	var server string

	command := &cobra.Command{
		Use:   "status",
		Short: "show the liveness of every box known to a running node",
		Run: func(cmd *cobra.Command, args []string) {
			if server == "" {
				server = readContext().Server
			}

			client := boxsync.NewClient(server)
			boxes, err := client.ListBoxes(commandContext(cmd))
			if err != nil {
				color.Red("%v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "URL", "Status"})
			for _, box := range boxes {
				status := "unknown"
				if box.Known && box.Online {
					status = "online"
				} else if box.Known {
					status = "offline"
				}
				table.Append([]string{strconv.FormatUint(uint64(box.ID), 10), box.Name, box.BaseURL, status})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&server, "server", "s", "", "admin api url (default from context)")

	return command
}
