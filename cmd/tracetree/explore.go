package main

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tracetree/internal/ui"
)

func newExploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore [flags] <trace.xml>",
		Short: "Browse the activity tree interactively",
		Long: `Open an interactive tree browser. Use enter to expand or collapse, e to
expand the slowest path, h to hide minor nodes and +/- to move the threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: runExplore,
	}
	addViewFlags(cmd)
	return cmd
}

func runExplore(cmd *cobra.Command, args []string) error {
	if args[0] == "-" {
		return errors.New("explore reads its keys from the terminal; pass a file instead of -")
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errors.New("explore needs an interactive terminal; use tree instead")
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
	model := ui.NewExplorer(res.Name, res.Groups, view.State(res.Groups))
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return err
	}
	return a.printDiagnostics(cmd, res)
}
