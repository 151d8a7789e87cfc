package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tracetree/internal/config"
	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
	"tracetree/internal/instant"
	"tracetree/internal/metrics"
	"tracetree/internal/navigator"
	"tracetree/internal/pipeline"
	"tracetree/internal/report"
	"tracetree/internal/storage"
	"tracetree/internal/tracexml"
)

// DefaultUploadName labels uploads sent without ?name=.
const DefaultUploadName = "upload.xml"

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// UploadResponse is returned by POST /api/traces.
type UploadResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	RootTotal   float64           `json:"rootTotal"`
	Groups      []*hierarchy.Node `json:"groups"`
	Stats       hierarchy.Stats   `json:"stats"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// TraceView is returned by GET /api/traces/{id}.
type TraceView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastEvent   string            `json:"lastEvent,omitempty"`
	Stats       hierarchy.Stats   `json:"stats"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	View        report.ViewJSON   `json:"view"`
}

// PathResponse is returned by GET /api/traces/{id}/path.
type PathResponse struct {
	ID   string           `json:"id"`
	Rows []report.RowJSON `json:"rows"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	AddError(r.Context(), err)
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: GetRequestID(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("trace exceeds %d bytes", s.opts.MaxUploadBytes))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if body == nil {
		body = []byte{}
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = DefaultUploadName
	}
	AddLogField(r.Context(), "trace", name)

	a, err := pipeline.Analyze(r.Context(), pipeline.Request{
		Name:           name,
		Data:           body,
		MaxBytes:       s.opts.MaxUploadBytes,
		MaxDiagnostics: s.opts.MaxDiagnostics,
		Cache:          s.opts.Cache,
		Logger:         s.log,
	})
	switch {
	case errors.Is(err, tracexml.ErrTooLarge):
		s.writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return
	case errors.Is(err, tracexml.ErrMalformed):
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	rec := &storage.Record{
		Name:        name,
		SourceBytes: int64(len(body)),
		Origin:      a.Origin,
		LastEvent:   a.LastEvent,
		Groups:      a.Groups,
		Stats:       a.Stats,
		Diagnostics: a.Diagnostics.Snapshot(),
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("store trace: %w", err))
		return
	}
	AddLogField(r.Context(), "trace_id", rec.ID)
	s.log.Debug("trace stored",
		slog.String("id", rec.ID),
		slog.Int("groups", a.Stats.Groups),
		slog.Int("events", a.Stats.Events))

	writeJSON(w, http.StatusCreated, UploadResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		RootTotal:   metrics.RootTotal(rec.Groups),
		Groups:      nonNilGroups(rec.Groups),
		Stats:       rec.Stats,
		Diagnostics: nonNilDiagnostics(rec.Diagnostics.Items),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"traces": list})
}

// record loads the trace named by the {id} URL parameter, writing the error
// response itself when it fails.
func (s *Server) record(w http.ResponseWriter, r *http.Request) (*storage.Record, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("trace %q not found", id))
		return nil, false
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	state, err := s.viewState(r.URL.Query(), rec.Groups)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, TraceView{
		ID:          rec.ID,
		Name:        rec.Name,
		CreatedAt:   rec.CreatedAt,
		LastEvent:   instant.Format(rec.LastEvent),
		Stats:       rec.Stats,
		Diagnostics: nonNilDiagnostics(rec.Diagnostics.Items),
		View:        report.NewViewJSON(navigator.Render(rec.Groups, state), state),
	})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	steps := report.PathRows(rec.Groups)
	rows := make([]report.RowJSON, len(steps))
	for i, row := range steps {
		rows[i] = report.NewRowJSON(row)
	}
	writeJSON(w, http.StatusOK, PathResponse{ID: rec.ID, Rows: rows})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, fmt.Errorf("trace %q not found", id))
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// viewState applies the threshold, hide_minor, expand and expanded query
// parameters over the server's view defaults. expanded is a comma-separated
// list of node keys and replaces the expansion policy when present.
func (s *Server) viewState(q url.Values, groups []*hierarchy.Node) (navigator.ViewState, error) {
	v := s.opts.View
	if raw := q.Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return navigator.ViewState{}, fmt.Errorf("threshold: %w", err)
		}
		v.Threshold = f
	}
	if raw := q.Get("hide_minor"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return navigator.ViewState{}, fmt.Errorf("hide_minor: %w", err)
		}
		v.HideMinor = b
	}
	if raw := q.Get("expand"); raw != "" {
		e, err := config.ParseExpand(raw)
		if err != nil {
			return navigator.ViewState{}, err
		}
		v.Expand = e
	}
	state := v.State(groups)
	if q.Has("expanded") {
		var keys []string
		for _, k := range strings.Split(q.Get("expanded"), ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		state = state.Apply(navigator.CollapseAll{}, navigator.Expand{Keys: keys})
	}
	return state, nil
}

func nonNilGroups(g []*hierarchy.Node) []*hierarchy.Node {
	if g == nil {
		return []*hierarchy.Node{}
	}
	return g
}

func nonNilDiagnostics(d []diag.Diagnostic) []diag.Diagnostic {
	if d == nil {
		return []diag.Diagnostic{}
	}
	return d
}
