package main

import (
	"fmt"
	"strconv"

	"github.com/alex-zharinov/hw05-final/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and apply schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply the schema according to DB_SCHEMA_MODE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.ApplySchema(cmd.Context(), db, e.cfg); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			cmd.Println("schema is up to date")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			status, err := database.GetSchemaStatus(cmd.Context(), db, e.cfg)
			if err != nil {
				return fmt.Errorf("schema status: %w", err)
			}
			cmd.Printf("mode=%s env=%s driver=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.Driver, status.WillRunSQL,
				status.WillRunAutoMigrate, len(status.AppliedVersions), len(status.PendingMigrations))
			for _, m := range status.PendingMigrations {
				cmd.Printf("pending: %s\n", m.String())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback [version]",
		Short: "Revert a SQL migration, the latest one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := 0
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				version = v
			}

			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			cmd.Println("rollback complete")
			return nil
		},
	})

	return cmd
}
