package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tracetree/internal/config"
	"tracetree/internal/storage/memory"
)

const sampleTrace = `<?xml version="1.0"?>
<TraceEvents>
  <TraceEvent sequence="1" name="Load" eventType="Begin">
    <DateTime>20240115T103000.000 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent sequence="2" name="Step" eventType="Begin">
    <DateTime>20240115T103000.100 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent sequence="3" name="Step" eventType="End">
    <DateTime>20240115T103000.150 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent sequence="4" name="Slow" eventType="Begin">
    <DateTime>20240115T103000.200 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent sequence="5" name="Slow" eventType="End">
    <DateTime>20240115T103002.000 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
  <TraceEvent sequence="6" name="Load" eventType="End">
    <DateTime>20240115T103002.000 GMT</DateTime><Interaction>7</Interaction>
  </TraceEvent>
</TraceEvents>`

func newTestServer(t *testing.T, maxUpload int64) *Server {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })
	return New(Options{
		Store:          store,
		Logger:         slog.New(slog.DiscardHandler),
		MaxUploadBytes: maxUpload,
		View:           config.View{Threshold: 3, Expand: config.ExpandNone},
	})
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func upload(t *testing.T, s *Server) UploadResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/traces?name=sample.xml", []byte(sampleTrace))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	return decode[UploadResponse](t, rec)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestUploadAndList(t *testing.T) {
	s := newTestServer(t, 0)
	up := upload(t, s)
	if up.ID == "" || up.Name != "sample.xml" {
		t.Fatalf("upload response: %+v", up)
	}
	if len(up.Groups) != 1 || up.Groups[0].Interaction != "7" {
		t.Fatalf("groups: %+v", up.Groups)
	}
	if up.Stats.Matched != 3 || up.RootTotal != 2 {
		t.Fatalf("stats %+v total %v", up.Stats, up.RootTotal)
	}

	rec := do(t, s, http.MethodGet, "/api/traces", nil)
	list := decode[struct {
		Traces []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"traces"`
	}](t, rec)
	if len(list.Traces) != 1 || list.Traces[0].ID != up.ID {
		t.Fatalf("list: %s", rec.Body.String())
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	s := newTestServer(t, 64)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", "<TraceEvents><TraceEvent", http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
		{"oversize", strings.Repeat("x", 65), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/traces", []byte(tt.body))
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("missing error body: %s", rec.Body.String())
			}
		})
	}
}

func TestGetAppliesViewParameters(t *testing.T) {
	s := newTestServer(t, 0)
	up := upload(t, s)

	rec := do(t, s, http.MethodGet, "/api/traces/"+up.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	tv := decode[TraceView](t, rec)
	if len(tv.View.Rows) != 1 || tv.LastEvent != "20240115T103002.000 GMT" {
		t.Fatalf("collapsed view: %+v", tv)
	}

	rec = do(t, s, http.MethodGet, "/api/traces/"+up.ID+"?expand=all&hide_minor=true&threshold=5", nil)
	tv = decode[TraceView](t, rec)
	var names []string
	for _, r := range tv.View.Rows {
		names = append(names, r.Name)
	}
	// Step is 0.05s of Load's 2s, under 5%.
	if strings.Join(names, ",") != "Interaction 7,Load,Slow" {
		t.Fatalf("rows = %v", names)
	}
	if tv.View.Rows[1].HiddenChildren != 1 || !tv.View.HideMinor || tv.View.Threshold != 5 {
		t.Fatalf("view = %+v", tv.View)
	}

	rec = do(t, s, http.MethodGet, "/api/traces/"+up.ID+"?expanded=interaction:7", nil)
	tv = decode[TraceView](t, rec)
	if len(tv.View.Rows) != 2 || tv.View.Rows[1].Name != "Load" || tv.View.Rows[1].Expanded {
		t.Fatalf("explicit expansion rows = %+v", tv.View.Rows)
	}

	for _, q := range []string{"threshold=abc", "hide_minor=maybe", "expand=some"} {
		if rec := do(t, s, http.MethodGet, "/api/traces/"+up.ID+"?"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, rec.Code)
		}
	}
}

func TestPathAndDelete(t *testing.T) {
	s := newTestServer(t, 0)
	up := upload(t, s)

	rec := do(t, s, http.MethodGet, "/api/traces/"+up.ID+"/path", nil)
	path := decode[PathResponse](t, rec)
	var keys []string
	for _, r := range path.Rows {
		keys = append(keys, r.Key)
	}
	if strings.Join(keys, ",") != "interaction:7,1,4" {
		t.Fatalf("path keys = %v", keys)
	}
	want := "Slow (#4→5) (1.800s - 90.0% of parent | 90.0% of total)"
	if got := path.Rows[2].Label; got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}

	if rec := do(t, s, http.MethodDelete, "/api/traces/"+up.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	for _, target := range []string{"/api/traces/" + up.ID, "/api/traces/" + up.ID + "/path"} {
		if rec := do(t, s, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("%s after delete: %d", target, rec.Code)
		}
	}
	if rec := do(t, s, http.MethodDelete, "/api/traces/"+up.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestLoggingMiddlewareRecordsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestIDMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "trace", "a.xml")
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if line["status"] != float64(http.StatusTeapot) || line["trace"] != "a.xml" {
		t.Fatalf("log line = %v", line)
	}
	if line["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Fatalf("request id mismatch: %v vs %s", line["request_id"], rec.Header().Get("X-Request-ID"))
	}
}
