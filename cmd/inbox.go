package cmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "inspect transactions received from remote boxes",
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	inboxCmd.AddCommand(listInboxCmd())
}

func listInboxCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list inbox transactions, most recently updated first",
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeDb, err := openServices()
			if err != nil {
				logrus.Error(err)
				return
			}
			defer closeDb()

			inbox, err := svc.inbox.ListTransactions(commandContext(cmd))
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Box", "Transaction", "Received", "Total", "Finished", "Last Updated"})
			for _, t := range inbox {
				table.Append([]string{
					t.RemoteBoxName,
					strconv.FormatInt(t.TransactionID, 10),
					strconv.FormatInt(t.ReceivedImageCount, 10),
					strconv.FormatInt(t.TotalImageCount, 10),
					strconv.FormatBool(t.Finished),
					t.LastUpdated.Format("2006-01-02 15:04:05"),
				})
			}
			table.Render()
		},
	}

	return command
}
