package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/repository"
	"github.com/alex-zharinov/hw05-final/internal/service"

	"github.com/spf13/cobra"
)

func userCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var password string
	create := &cobra.Command{
		Use:   "create <username> <email>",
		Short: "Create an account",
		Long:  "Create an account. The password is taken from --password or YATUBE_PASSWORD.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("YATUBE_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required (--password or YATUBE_PASSWORD)")
			}

			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			accounts := service.NewAccountService(repository.NewUserRepository(db))
			user, err := accounts.CreateUser(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			cmd.Printf("created user %d /profile/%s/\n", user.ID, user.Username)
			return nil
		},
	}
	create.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.AddCommand(create)

	return cmd
}
