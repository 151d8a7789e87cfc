package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracetree/internal/navigator"
	"tracetree/internal/report"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [flags] <trace.xml|->",
		Short: "Print the activity tree of a tracer export",
		Long: `Print the reconstructed activity tree with durations and percentages.
By default the slowest path is expanded; use --expand all to print everything.`,
		Args: cobra.ExactArgs(1),
		RunE: runTree,
	}
	addViewFlags(cmd)
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Int("width", 0, "truncate lines to this many columns (0 = terminal width or unlimited)")
	return cmd
}

// treeDocument is the JSON output of tree: the whole forest plus the view
// the flags selected.
type treeDocument struct {
	report.Document
	View report.ViewJSON `json:"view"`
}

func runTree(cmd *cobra.Command, args []string) error {
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
	view := a.cfg.View
	if err := applyViewFlags(cmd, &view); err != nil {
		return err
	}

	res, err := a.analyze(cmd.Context(), cmd, args[0])
	if err != nil {
		return err
	}
	state := view.State(res.Groups)
	rendered := navigator.Render(res.Groups, state)
	out := cmd.OutOrStdout()

	if format == "json" {
		doc := report.NewDocument(res.Name, res.Groups, res.Stats, res.Diagnostics, res.Origin, res.LastEvent)
		return report.WriteJSON(out, treeDocument{Document: doc, View: report.NewViewJSON(rendered, state)})
	}

	opts := report.Options{Color: a.color}
	if opts.Width, _ = cmd.Flags().GetInt("width"); opts.Width == 0 && writesToStdout(out) {
		opts.Width = terminalWidth(os.Stdout)
	}
	if len(rendered.Rows) == 0 && rendered.HiddenRoots == 0 {
		fmt.Fprintln(out, "no activities")
	} else if err := report.Tree(out, rendered, state.HideMinor(), opts); err != nil {
		return err
	}
	return a.printDiagnostics(cmd, res)
}
