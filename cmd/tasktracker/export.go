package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasktracker/internal/manager"
	"tasktracker/internal/models"
	"tasktracker/internal/server"
	"tasktracker/internal/storage/sqlite"
)

func newExportCmd(configPath *string) *cobra.Command {
	var (
		dbPath      string
		prioritized bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the stored items as JSON",
		Long: "Export loads the database the way serve does at startup and prints " +
			"epics, subtasks and tasks in that order, or only scheduled items by start time with --prioritized.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("export needs a database path")
			}

			db, err := sqlite.Open(cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			store := manager.New()
			if err := manager.Restore(cmd.Context(), store, db); err != nil {
				return fmt.Errorf("restore from %s: %w", cfg.DBPath, err)
			}

			return server.WriteItems(cmd.OutOrStdout(), exportItems(store, prioritized))
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file (overrides config)")
	cmd.Flags().BoolVar(&prioritized, "prioritized", false, "print only scheduled items ordered by start time")
	return cmd
}

func exportItems(store *manager.Store, prioritized bool) []models.Entity {
	if prioritized {
		return store.GetPrioritized()
	}
	var out []models.Entity
	for _, e := range store.GetEpics() {
		out = append(out, e)
	}
	for _, s := range store.GetSubtasks() {
		out = append(out, s)
	}
	for _, t := range store.GetTasks() {
		out = append(out, t)
	}
	return out
}
