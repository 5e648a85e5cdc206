package main

import (
	"Nemi_Hub/internal/repository/mysql"

	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cfg)
			db, err := mysql.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			if err := mysql.Migrate(db); err != nil {
				return err
			}
			logger.Info("migration finished", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
