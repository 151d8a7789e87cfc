// Package server exposes trace analysis over HTTP: upload an export, then
// browse its forest with the same view controls as the CLI.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tracetree/internal/cache"
	"tracetree/internal/config"
	"tracetree/internal/storage"
)

// Options configures a Server. Store is required.
type Options struct {
	Store  storage.Store
	Logger *slog.Logger
	// MaxUploadBytes caps request bodies; 0 means config.Default's limit.
	MaxUploadBytes int64
	MaxDiagnostics int
	// View holds the defaults for view query parameters.
	View  config.View
	Cache *cache.Disk
}

type Server struct {
	router *chi.Mux
	store  storage.Store
	log    *slog.Logger
	opts   Options
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.Default().MaxUploadBytes()
	}
	if opts.View.Expand == "" {
		opts.View = config.Default().View
	}
	s := &Server{
		router: chi.NewRouter(),
		store:  opts.Store,
		log:    opts.Logger,
		opts:   opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware(s.log))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/traces", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/path", s.handlePath)
		r.Delete("/{id}", s.handleDelete)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
