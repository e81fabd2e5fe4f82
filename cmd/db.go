package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emrgen/grantcore/internal/config"
	"github.com/emrgen/grantcore/internal/model"
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
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err := config.GetDb(cfg)
			if err != nil {
				return err
			}
			if err := model.Migrate(db); err != nil {
				return err
			}
			color.Green("migrated %s database", cfg.DBDriver)
			return nil
		},
	}

	return command
}
