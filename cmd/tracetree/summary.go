package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tracetree/internal/pipeline"
	"tracetree/internal/report"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [flags] <trace.xml|dir>...",
		Short: "Analyse several exports in parallel and print one line per trace",
		Long: `Analyse every given file, and every *.xml file below given directories, in
parallel. Failing traces are reported in the table and make the command exit
non-zero without stopping the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSummary,
	}
	cmd.Flags().Int("jobs", 0, "max parallel analyses (0 = number of CPUs)")
	cmd.Flags().String("ui", "auto", "show a progress view (auto|on|off)")
	cmd.Flags().String("format", "table", "output format (table|json)")
	return cmd
}

type summaryJSON struct {
	Name   string `json:"name"`
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
	report.Document
}

func runSummary(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be table or json)", format)
	}
	uiStr, _ := cmd.Flags().GetString("ui")
	uiMode, err := readMode("ui", uiStr)
	if err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")

	a, done, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer done()

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no *.xml files found in %s", strings.Join(args, ", "))
	}

	base := pipeline.Request{
		MaxBytes:       a.maxBytes,
		MaxDiagnostics: a.maxDiag,
		Cache:          a.cache,
		Logger:         a.log,
	}
	var results []pipeline.FileResult
	if uiMode.resolve(os.Stdout) && writesToStdout(cmd.OutOrStdout()) {
		results, err = runBatchWithUI(cmd.Context(), "analysing traces", paths, jobs, base)
	} else {
		results, err = pipeline.BuildFiles(cmd.Context(), paths, jobs, base)
	}
	if err != nil {
		return err
	}

	failed := 0
	lines := make([]report.SummaryLine, len(results))
	for i, r := range results {
		lines[i] = report.SummaryLine{Name: r.Path, Err: r.Err}
		if r.Err != nil {
			failed++
			continue
		}
		lines[i].Groups = r.Analysis.Groups
		lines[i].Stats = r.Analysis.Stats
		lines[i].LastEvent = r.Analysis.LastEvent
		lines[i].Cached = r.Analysis.Cached
		a.printTimings(cmd, r.Analysis)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		docs := make([]summaryJSON, len(results))
		for i, r := range results {
			docs[i].Name = r.Path
			if r.Err != nil {
				docs[i].Error = r.Err.Error()
				continue
			}
			an := r.Analysis
			docs[i].Document = report.NewDocument(r.Path, an.Groups, an.Stats, an.Diagnostics, an.Origin, an.LastEvent)
			docs[i].Cached = an.Cached
		}
		if err := report.WriteJSON(out, docs); err != nil {
			return err
		}
	} else if err := report.Summary(out, lines, report.Options{Color: a.color}); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailedTraces, failed, len(results))
	}
	return nil
}

// expandInputs replaces directories with the *.xml files below them, sorted,
// and keeps files as given.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".xml") {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
