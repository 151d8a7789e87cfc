package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tracetree/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default tracetree.toml",
		Long: `Write tracetree.toml with the default settings into dir (default: the
working directory). Existing files are kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
	cmd.Flags().Bool("force", false, "overwrite an existing tracetree.toml")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	force, _ := cmd.Flags().GetBool("force")
	path, err := config.Init(target, force)
	if errors.Is(err, config.ErrExists) {
		return fmt.Errorf("%w (use --force to overwrite)", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
