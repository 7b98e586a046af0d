package main

import (
	"fmt"

	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/seed"

	"github.com/spf13/cobra"
)

func seedCmd(e *env) *cobra.Command {
	opts := seed.DefaultOptions()
	var groupsOnly bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with the bundled groups and demo content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ShouldClean && e.cfg.IsProduction() {
				return fmt.Errorf("refusing --clean in %q", e.cfg.Env)
			}

			db, err := e.connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.ApplySchema(cmd.Context(), db, e.cfg); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			if groupsOnly {
				fixtures, err := seed.DefaultGroups()
				if err != nil {
					return err
				}
				groups, err := seed.Groups(cmd.Context(), db, fixtures)
				if err != nil {
					return err
				}
				cmd.Printf("groups: %d\n", len(groups))
				return nil
			}

			sum, err := seed.Seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			cmd.Printf("groups: %d users: %d posts: %d comments: %d follows: %d\n",
				sum.Groups, sum.Users, sum.Posts, sum.Comments, sum.Follows)
			cmd.Printf("every demo user signs in with %q\n", seed.DemoPassword)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.NumUsers, "users", opts.NumUsers, "number of users to create")
	f.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "number of posts to create")
	f.IntVar(&opts.NumComments, "comments", opts.NumComments, "number of comments to create")
	f.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "authors followed by each user")
	f.IntVar(&opts.MaxDays, "days", opts.MaxDays, "spread post dates over this many days")
	f.BoolVar(&opts.ShouldClean, "clean", false, "delete existing users, posts, comments and follows first")
	f.Int64Var(&opts.RandSeed, "rand-seed", 0, "random seed for reproducible data")
	f.BoolVar(&groupsOnly, "groups-only", false, "only upsert the bundled groups")

	return cmd
}
