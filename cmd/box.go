package cmd

import (
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var boxCmd = &cobra.Command{
	Use:   "box",
	Short: "manage the remote boxes this node polls",
}

func init() {
	rootCmd.AddCommand(boxCmd)
	boxCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	boxCmd.AddCommand(addBoxCmd())
	boxCmd.AddCommand(listBoxCmd())
	boxCmd.AddCommand(removeBoxCmd())
}

func addBoxCmd() *cobra.Command {
	var name string
	var baseURL string

	var required = []string{"name", "url"}

	command := &cobra.Command{
		Use:     "add",
		Short:   "add a remote box",
		Example: "boxsync box add -n <name> -u <base-url>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			svc, closeDb, err := openServices()
			if err != nil {
				logrus.Error(err)
				return
			}
			defer closeDb()

			box, err := svc.boxes.AddBox(commandContext(cmd), name, baseURL)
			if err != nil {
				color.Red("failed to add box: %v", err)
				return
			}

			printField("ID", strconv.FormatUint(uint64(box.ID), 10))
			printField("Name", box.Name)
			printField("URL", box.BaseURL)
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "box name (required)")
	command.Flags().StringVarP(&baseURL, "url", "u", "", "box base url (required)")

	return command
}

func listBoxCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list remote boxes",
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeDb, err := openServices()
			if err != nil {
				logrus.Error(err)
				return
			}
			defer closeDb()

			boxes, err := svc.boxes.ListBoxes(commandContext(cmd))
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "URL", "Online"})
			for _, box := range boxes {
				table.Append([]string{strconv.FormatUint(uint64(box.ID), 10), box.Name, box.BaseURL, strconv.FormatBool(box.Online)})
			}
			table.Render()
		},
	}

	return command
}

func removeBoxCmd() *cobra.Command {
	var name string

	var required = []string{"name"}

	command := &cobra.Command{
		Use:   "remove",
		Short: "remove a remote box; data received from it is kept",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			svc, closeDb, err := openServices()
			if err != nil {
				logrus.Error(err)
				return
			}
			defer closeDb()

			if err := svc.boxes.RemoveBox(commandContext(cmd), name); err != nil {
				color.Red("failed to remove box %s: %v", name, err)
				return
			}
			color.Green("box %s removed", name)
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "box name (required)")

	return command
}
