package main

import (
	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/middleware"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "yatubectl",
		Short:        "Administer a Yatube deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			middleware.SetupLogger(cfg.Env)
			e.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		migrateCmd(e),
		groupCmd(e),
		userCmd(e),
		cacheCmd(e),
		seedCmd(e),
	)
	return root
}

// connect opens the database without touching the schema.
func (e *env) connect() (*gorm.DB, error) {
	return database.Connect(e.cfg)
}
