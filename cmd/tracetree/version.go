package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tracetree/internal/report"
	"tracetree/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Bool("full", false, "include the Go toolchain version")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	info := version.Get()
	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		return report.WriteJSON(out, info)
	case "pretty":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	line := info.String()
	if writesToStdout(out) && !color.NoColor && isTerminal(os.Stdout) {
		line = info.Colored()
	}
	fmt.Fprintln(out, line)
	if full, _ := cmd.Flags().GetBool("full"); full {
		fmt.Fprintf(out, "go: %s\n", info.GoVersion)
	}
	return nil
}
