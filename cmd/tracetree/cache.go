package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracetree/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk analysis cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every cached analysis",
		Args:  cobra.NoArgs,
		RunE:  runCacheClean,
	}, &cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := prepare(cmd)
			if err != nil {
				return err
			}
			defer done()
			dir, err := a.cacheDir(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})
	return cmd
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	a, done, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer done()
	dir, err := a.cacheDir(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "cache directory not found")
		return nil
	}
	disk := a.cache
	if disk == nil || disk.Dir() != dir {
		if disk, err = cache.Open(dir); err != nil {
			return err
		}
	}
	if err := disk.Clean(); err != nil {
		return fmt.Errorf("failed to clean %q: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", dir)
	return nil
}
