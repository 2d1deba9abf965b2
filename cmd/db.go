package cmd

import (
	"github.com/emrgen/boxsync/internal/config"
	"github.com/emrgen/boxsync/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDb()
			if err != nil {
				return err
			}
			if err := model.Migrate(db); err != nil {
				return err
			}
			logrus.Info("database migrated")
			return nil
		},
	}

	return command
}

func openDb() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.GetDb(cfg)
}
