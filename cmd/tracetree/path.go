package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracetree/internal/report"
)

func newPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path [flags] <trace.xml|->",
		Short: "Print the chain of longest activities from the slowest interaction down",
		Args:  cobra.ExactArgs(1),
		RunE:  runPath,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runPath(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	a, done, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer done()

	res, err := a.analyze(cmd.Context(), cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if format == "json" {
		steps := report.PathRows(res.Groups)
		rows := make([]report.RowJSON, len(steps))
		for i, r := range steps {
			rows[i] = report.NewRowJSON(r)
		}
		return report.WriteJSON(out, map[string]any{"name": res.Name, "path": rows})
	}
	opts := report.Options{Color: a.color}
	if writesToStdout(out) {
		opts.Width = terminalWidth(os.Stdout)
	}
	if err := report.Path(out, res.Groups, opts); err != nil {
		return err
	}
	return a.printDiagnostics(cmd, res)
}
