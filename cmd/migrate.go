package cmd

import (
	"github.com/spf13/cobra"

	"wingo/config"
	"wingo/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

func init() {
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Get().RequireDatabase(); err != nil {
				return err
			}
			return database.MigrateUp()
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := "1"
			if len(args) > 0 {
				steps = args[0]
			}
			if err := config.Get().RequireDatabase(); err != nil {
				return err
			}
			return database.MigrateDown(steps)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Get().RequireDatabase(); err != nil {
				return err
			}
			return database.MigrateStatus()
		},
	})
}
