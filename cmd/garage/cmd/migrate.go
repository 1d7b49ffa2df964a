package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	gormstore "github.com/petruce/garage/stores/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return err
		}
		slog.Info("migrations applied", "driver", cfg.DBDriver)
		return nil
	},
}
