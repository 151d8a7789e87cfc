package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tracetree/internal/config"
	"tracetree/internal/server"
	"tracetree/internal/storage"
	"tracetree/internal/storage/memory"
	"tracetree/internal/storage/sqlite"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve the HTTP API for uploading and browsing traces",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default from config, :7428)")
	cmd.Flags().String("storage", "", "trace store (memory|sqlite)")
	cmd.Flags().String("sqlite-path", "", "database file for --storage sqlite")
	cmd.Flags().Int("max-upload-mb", 0, "largest accepted upload in MiB")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, done, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer done()

	sc := a.cfg.Server
	flags := cmd.Flags()
	if flags.Changed("addr") {
		sc.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("storage") {
		s, _ := flags.GetString("storage")
		sc.Storage = config.Storage(s)
	}
	if flags.Changed("sqlite-path") {
		sc.SQLitePath, _ = flags.GetString("sqlite-path")
	}
	if flags.Changed("max-upload-mb") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-mb")
	}
	cfg := a.cfg
	cfg.Server = sc
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openStore(sc)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.log.Warn("closing store", slog.Any("err", err))
		}
	}()

	srv := server.New(server.Options{
		Store:          store,
		Logger:         a.log,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MaxDiagnostics: a.maxDiag,
		View:           cfg.View,
		Cache:          a.cache,
	})
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !a.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s (storage: %s)\n", sc.Addr, sc.Storage)
	}
	return srv.ListenAndServe(ctx, sc.Addr)
}

func openStore(sc config.Server) (storage.Store, error) {
	switch sc.Storage {
	case config.StorageSQLite:
		s, err := sqlite.New(sc.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return memory.New(), nil
	}
}
