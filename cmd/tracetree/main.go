package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tracetree/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracetree",
		Short: "Turn Pega tracer exports into timed activity trees",
		Long: `tracetree rebuilds the nested activity hierarchy of a Pega tracer XML export,
computes how much of its parent and of the whole trace each activity took, and
lets you browse the result in the terminal, as JSON, or over HTTP.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to tracetree.toml (default: searched upward from the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress diagnostics and other non-essential output")
	pf.Bool("timings", false, "print per-stage timings to stderr")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics kept per trace")
	pf.Int64("max-mb", 256, "refuse trace files larger than this many MiB")
	pf.Bool("no-cache", false, "bypass the on-disk analysis cache")
	pf.String("cache-dir", "", "cache directory (default $XDG_CACHE_HOME/tracetree)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (text|json)")
	pf.String("trace", "", "write self-trace events to this file (- for stderr, .ndjson for JSON lines)")
	pf.String("trace-level", "off", "self-trace level (off|error|stage|file|debug)")
	pf.Int("trace-ring-size", 0, "events kept in memory for failure dumps (0 = default)")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat trace event at this interval (0 = off)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(
		newTreeCmd(),
		newPathCmd(),
		newExploreCmd(),
		newSummaryCmd(),
		newServeCmd(),
		newCacheCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		dumpTraceRing(os.Stderr)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of f, or 0 when it is not a terminal.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
