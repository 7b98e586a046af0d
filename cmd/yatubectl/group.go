package main

import (
	"fmt"
	"strings"

	"github.com/alex-zharinov/hw05-final/internal/cache"
	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/repository"
	"github.com/alex-zharinov/hw05-final/internal/validation"

	"github.com/spf13/cobra"
)

func groupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage communities",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <slug> <title>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := &models.Group{
				Slug:        strings.TrimSpace(args[0]),
				Title:       strings.TrimSpace(args[1]),
				Description: description,
			}
			if err := validation.ValidateGroupSlug(group.Slug); err != nil {
				return err
			}
			if err := validation.ValidateGroupTitle(group.Title); err != nil {
				return err
			}

			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := repository.NewGroupRepository(db).Create(cmd.Context(), group); err != nil {
				return fmt.Errorf("create group: %w", err)
			}

			// The post form caches the group choices.
			if rdb := cache.InitRedis(e.cfg.RedisURL); rdb != nil {
				cache.Invalidate(cmd.Context(), rdb, cache.GroupsKey)
				_ = rdb.Close()
			}
			cmd.Printf("created group %d /group/%s/\n", group.ID, group.Slug)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "group description")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			groups, err := repository.NewGroupRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, g := range groups {
				cmd.Printf("%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
			}
			return nil
		},
	})

	return cmd
}
