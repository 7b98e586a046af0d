package main

import (
	"errors"

	"github.com/alex-zharinov/hw05-final/internal/cache"

	"github.com/spf13/cobra"
)

func cacheCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rdb := cache.InitRedis(e.cfg.RedisURL)
			if rdb == nil {
				return errors.New("redis is unavailable; the in-process cache of a running server cannot be cleared from here")
			}
			defer rdb.Close()

			removed, err := cache.ClearPages(cmd.Context(), rdb)
			if err != nil {
				return err
			}
			cmd.Printf("removed %d cached pages\n", removed)
			return nil
		},
	})

	return cmd
}
