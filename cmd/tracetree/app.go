package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tracetree/internal/cache"
	"tracetree/internal/config"
	"tracetree/internal/logging"
	"tracetree/internal/pipeline"
	"tracetree/internal/report"
	"tracetree/internal/tracexml"
)

// app is the per-invocation environment shared by the subcommands.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	color   bool
	quiet   bool
	timings bool

	maxBytes int64
	maxDiag  int
	cache    *cache.Disk
}

// prepare resolves configuration, logging, self-tracing and profiling for
// cmd. Configuration precedence is defaults, tracetree.toml, .env and
// TRACETREE_* variables, then flags.
func prepare(cmd *cobra.Command) (*app, func(), error) {
	pf := cmd.Root().PersistentFlags()
	a := &app{}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	a.cfg = cfg

	levelStr, _ := pf.GetString("log-level")
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}
	formatStr, _ := pf.GetString("log-format")
	format, err := logging.ParseFormat(formatStr)
	if err != nil {
		return nil, nil, err
	}
	a.log = logging.New(cmd.ErrOrStderr(), level, format)

	colorStr, _ := pf.GetString("color")
	colorMode, err := readMode("color", colorStr)
	if err != nil {
		return nil, nil, err
	}
	switch colorMode {
	case modeOn:
		a.color = true
	case modeAuto:
		a.color = writesToStdout(cmd.OutOrStdout()) && isTerminal(os.Stdout)
	}
	a.quiet, _ = pf.GetBool("quiet")
	a.timings, _ = pf.GetBool("timings")
	a.maxDiag, _ = pf.GetInt("max-diagnostics")
	maxMB, _ := pf.GetInt64("max-mb")
	if maxMB <= 0 {
		return nil, nil, fmt.Errorf("--max-mb must be positive, got %d", maxMB)
	}
	a.maxBytes = maxMB << 20

	if a.cfg.Cache.Enabled {
		if noCache, _ := pf.GetBool("no-cache"); !noCache {
			dir, err := a.cacheDir(cmd)
			if err != nil {
				return nil, nil, err
			}
			if a.cache, err = cache.Open(dir); err != nil {
				a.log.Warn("cache disabled", slog.Any("err", err))
				a.cache = nil
			}
		}
	}

	stopTrace, err := setupTracing(cmd)
	if err != nil {
		return nil, nil, err
	}
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		stopTrace()
		return nil, nil, err
	}
	return a, func() {
		stopProf()
		stopTrace()
	}, nil
}

func writesToStdout(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout
}

// loadConfig reads --config or the discovered tracetree.toml, then the
// environment overrides. View flags are applied later by the commands that
// define them.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	var cfg config.Config
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(wd)
	}
	if err != nil {
		return config.Config{}, err
	}
	envDir := wd
	if cfg.Path != "" {
		envDir = filepath.Dir(cfg.Path)
	}
	if err := config.LoadDotEnv(envDir); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) cacheDir(cmd *cobra.Command) (string, error) {
	if dir, _ := cmd.Root().PersistentFlags().GetString("cache-dir"); dir != "" {
		return dir, nil
	}
	if a.cfg.Cache.Dir != "" {
		return a.cfg.Cache.Dir, nil
	}
	return cache.DefaultDir("tracetree")
}

// request builds a pipeline request for path; "-" reads the trace from in.
func (a *app) request(path string, in io.Reader) (pipeline.Request, error) {
	req := pipeline.Request{
		Path:           path,
		MaxBytes:       a.maxBytes,
		MaxDiagnostics: a.maxDiag,
		Cache:          a.cache,
		Logger:         a.log,
	}
	if path == "-" {
		data, err := tracexml.ReadLimited(in, a.maxBytes)
		if err != nil {
			return req, fmt.Errorf("read stdin: %w", err)
		}
		req.Path = ""
		req.Name = "stdin"
		req.Data = data
	}
	return req, nil
}

// analyze runs one trace through the pipeline.
func (a *app) analyze(ctx context.Context, cmd *cobra.Command, path string) (*pipeline.Analysis, error) {
	req, err := a.request(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	a.printTimings(cmd, res)
	return res, nil
}

func (a *app) printTimings(cmd *cobra.Command, res *pipeline.Analysis) {
	if !a.timings || res == nil {
		return
	}
	label := res.Name
	if res.Cached {
		label += " (cached)"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s", label, res.Timer.Summary())
}

// printDiagnostics writes res's diagnostics to stderr unless --quiet.
func (a *app) printDiagnostics(cmd *cobra.Command, res *pipeline.Analysis) error {
	if a.quiet || res.Diagnostics == nil || res.Diagnostics.Total() == 0 {
		return nil
	}
	return report.Diagnostics(cmd.ErrOrStderr(), res.Diagnostics, report.Options{Color: a.color})
}

// applyViewFlags overlays --threshold, --hide-minor and --expand when the
// user set them.
func applyViewFlags(cmd *cobra.Command, v *config.View) error {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		t, err := flags.GetFloat64("threshold")
		if err != nil {
			return err
		}
		v.Threshold = t
	}
	if flags.Changed("hide-minor") {
		h, err := flags.GetBool("hide-minor")
		if err != nil {
			return err
		}
		v.HideMinor = h
	}
	if flags.Changed("expand") {
		raw, err := flags.GetString("expand")
		if err != nil {
			return err
		}
		e, err := config.ParseExpand(raw)
		if err != nil {
			return err
		}
		v.Expand = e
	}
	if v.Threshold < 0 || v.Threshold > 100 {
		return fmt.Errorf("--threshold must be within 0..100, got %g", v.Threshold)
	}
	return nil
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("threshold", 3, "percent of parent below which a node is minor (0..100)")
	cmd.Flags().Bool("hide-minor", false, "omit minor nodes and their subtrees")
	cmd.Flags().String("expand", "top", "initial expansion (none|top|all)")
}

var errFailedTraces = errors.New("some traces failed")
