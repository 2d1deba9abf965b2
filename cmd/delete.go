package cmd

import (
	"strconv"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd())
}

func deleteCmd() *cobra.Command {
	var level string
	var id uint

	var required = []string{"level", "id"}

	command := &cobra.Command{
		Use:     "delete",
		Short:   "delete a patient, study, series or image with everything below it",
		Example: "boxsync delete -l study -i 42",
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

			refs, err := svc.hierarchy.Delete(commandContext(cmd), model.Level(level), id)
			if err != nil {
				color.Red("failed to delete %s %d: %v", level, id, err)
				return
			}

			printField("Deleted", level+" "+strconv.FormatUint(uint64(id), 10))
			printField("Images", strconv.Itoa(len(refs)))
		},
	}

	command.Flags().StringVarP(&level, "level", "l", "", "patient, study, series or image (required)")
	command.Flags().UintVarP(&id, "id", "i", 0, "entity id (required)")

	return command
}
