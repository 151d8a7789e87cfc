package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tracetree/internal/cache"
	"tracetree/internal/diag"
	"tracetree/internal/tracexml"
)

const doc = `<TraceEvents>
<TraceEvent name="Activity" eventType="Begin" keyname="A" sequence="1"><DateTime>20240115T103000.000 GMT</DateTime><Interaction>1</Interaction></TraceEvent>
<TraceEvent name="Activity" eventType="Begin" keyname="B" sequence="2"><DateTime>20240115T103001.000 GMT</DateTime><Interaction>1</Interaction></TraceEvent>
<TraceEvent name="Activity" eventType="End" keyname="B" sequence="3"><DateTime>20240115T103003.000 GMT</DateTime><Interaction>1</Interaction></TraceEvent>
<TraceEvent name="Activity" eventType="End" keyname="Z" sequence="4"><DateTime>20240115T103004.000 GMT</DateTime><Interaction>1</Interaction></TraceEvent>
<TraceEvent name="Activity" eventType="End" keyname="A" sequence="5"><DateTime>20240115T103005.000 GMT</DateTime><Interaction>1</Interaction></TraceEvent>
</TraceEvents>`

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) stages(status Status) []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Stage
	for _, e := range r.events {
		if e.Status == status {
			out = append(out, e.Stage)
		}
	}
	return out
}

func TestAnalyzeInMemory(t *testing.T) {
	rec := &recorder{}
	a, err := Analyze(context.Background(), Request{Name: "mem", Data: []byte(doc), Progress: rec})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Groups) != 1 || a.Groups[0].Duration != 5 {
		t.Fatalf("groups: %+v", a.Groups)
	}
	if a.Stats.DiscardedEnds != 1 || a.Diagnostics.Count(diag.TraceDiscardedEnd) != 1 {
		t.Fatalf("discarded end not surfaced: %+v", a.Stats)
	}
	want := time.Date(2024, 1, 15, 10, 30, 5, 0, time.UTC)
	if !a.LastEvent.Equal(want) {
		t.Fatalf("LastEvent = %v, want %v", a.LastEvent, want)
	}
	if !a.Origin.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("Origin = %v", a.Origin)
	}
	done := rec.stages(StatusDone)
	if len(done) != 3 || done[0] != StageLoad || done[2] != StageBuild {
		t.Fatalf("done stages: %v", done)
	}
	if len(a.Timer.Report().Phases) != 3 {
		t.Fatalf("timer phases: %+v", a.Timer.Report())
	}
}

func TestAnalyzeMalformed(t *testing.T) {
	rec := &recorder{}
	_, err := Analyze(context.Background(), Request{Name: "bad", Data: []byte("<x>"), Progress: rec})
	if !errors.Is(err, tracexml.ErrMalformed) {
		t.Fatalf("want ErrMalformed, got %v", err)
	}
	if errs := rec.stages(StatusError); len(errs) != 1 || errs[0] != StageLoad {
		t.Fatalf("error events: %v", errs)
	}
}

func TestAnalyzeTooLarge(t *testing.T) {
	_, err := Analyze(context.Background(), Request{Name: "big", Data: []byte(doc), MaxBytes: 10})
	if !errors.Is(err, tracexml.ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestAnalyzeNoEvents(t *testing.T) {
	a, err := Analyze(context.Background(), Request{Name: "empty", Data: []byte("<TraceEvents/>")})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Groups) != 0 || a.Diagnostics.Count(diag.LoadNoEvents) != 1 {
		t.Fatalf("want empty forest with notice, got %d groups", len(a.Groups))
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	req := Request{Name: "c", Data: []byte(doc), Cache: c}
	first, err := Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Fatal("first run cannot be a hit")
	}
	second, err := Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Key != first.Key {
		t.Fatal("second run should hit the cache")
	}
	if second.Groups[0].Duration != first.Groups[0].Duration || second.Stats != first.Stats {
		t.Fatal("cached forest differs")
	}
	if second.Diagnostics.Count(diag.TraceDiscardedEnd) != 1 {
		t.Fatal("cached diagnostics lost")
	}
}

func TestClockDependentResultIsNotCached(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	bad := `<r><TraceEvent name="Activity" eventType="Begin" keyname="A" sequence="1"><DateTime>garbage</DateTime></TraceEvent></r>`
	req := Request{Name: "n", Data: []byte(bad), Cache: c}
	if _, err := Analyze(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	a, err := Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a.Cached {
		t.Fatal("result with a clock-based origin must not be cached")
	}
}

func TestBuildFilesKeepsOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xml")
	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(good, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("<x"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.xml")

	rec := &recorder{}
	res, err := BuildFiles(context.Background(), []string{bad, good, missing}, 2, Request{Progress: rec})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 || res[0].Path != bad || res[1].Path != good || res[2].Path != missing {
		t.Fatalf("order: %+v", res)
	}
	if !errors.Is(res[0].Err, tracexml.ErrMalformed) {
		t.Fatalf("bad file: %v", res[0].Err)
	}
	if res[1].Err != nil || len(res[1].Analysis.Groups) != 1 {
		t.Fatalf("good file: %+v", res[1])
	}
	if !errors.Is(res[2].Err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", res[2].Err)
	}
	if q := rec.stages(StatusQueued); len(q) != 3 {
		t.Fatalf("queued events: %v", q)
	}
}

func TestBuildFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildFiles(ctx, []string{"a.xml"}, 1, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{File: "f", Stage: StageBuild, Status: StatusDone})
	if e := <-ch; e.File != "f" || e.Stage != StageBuild {
		t.Fatalf("got %+v", e)
	}
	ChannelSink{}.OnEvent(Event{})
}
