package main

import (
	"fmt"

	"annotation-review/internal/config"
	"annotation-review/internal/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := repository.OpenDatabase(cfg.Database.Path, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.MigrateDB(db, logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database at %s is up to date\n", cfg.Database.Path)
		return nil
	},
}
