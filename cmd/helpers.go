package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/emrgen/boxsync/internal/config"
	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/storage"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// services opens the configured database and payload store for commands
// that work on the index directly.
type services struct {
	store     *store.GormStore
	hierarchy *service.HierarchyService
	inbox     *service.InboxService
	boxes     *service.BoxService
}

func openServices() (*services, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := config.GetDb(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDb := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	s := store.NewGormStore(db)
	if err := s.Migrate(); err != nil {
		closeDb()
		return nil, nil, err
	}

	files, err := storage.NewFileStore(cfg.PayloadDir())
	if err != nil {
		closeDb()
		return nil, nil, err
	}

	hierarchy := service.NewHierarchyService(s, files, dicom.NewJSONCodec(), nil)
	return &services{
		store:     s,
		hierarchy: hierarchy,
		inbox:     service.NewInboxService(s, hierarchy, nil),
		boxes:     service.NewBoxService(s),
	}, closeDb, nil
}

func printField(label, value string) {
	color.Set(color.FgCyan)
	fmt.Print(label)
	color.Unset()
	fmt.Printf(": %s\n", value)
}

// checkMissingFlags checks if the required flags are set and returns ok if they are set
func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		_ = cmd.Usage()

		return true
	}

	return false
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
