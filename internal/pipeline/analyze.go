// Package pipeline runs a tracer export through loading, normalisation and
// hierarchy building, with optional caching, progress reporting and tracing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"tracetree/internal/cache"
	"tracetree/internal/diag"
	"tracetree/internal/event"
	"tracetree/internal/hierarchy"
	"tracetree/internal/observ"
	"tracetree/internal/trace"
	"tracetree/internal/tracexml"
)

// Request describes one analysis. Data takes precedence over Path.
type Request struct {
	Path string
	// Name labels the input in progress events and results; defaults to the
	// base name of Path.
	Name string
	Data []byte

	MaxBytes       int64
	MaxDiagnostics int
	// Cache may be nil to disable caching.
	Cache    *cache.Disk
	Logger   *slog.Logger
	Progress Sink
	// Now supplies the fallback origin when the first timestamp is unusable.
	Now func() time.Time
}

// Analysis is the result of one input.
type Analysis struct {
	Name        string
	Groups      []*hierarchy.Node
	Stats       hierarchy.Stats
	Diagnostics *diag.Bag
	Origin      time.Time
	// LastEvent is the latest parseable timestamp in the input.
	LastEvent time.Time
	Key       cache.Key
	Cached    bool
	Timer     *observ.Timer
}

// Analyze loads, normalizes and builds one input. Only unusable documents
// fail; problems inside the trace become diagnostics.
func Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Path == "" && req.Data == nil {
		return nil, errors.New("missing trace input")
	}
	log := req.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	name := req.Name
	if name == "" {
		name = filepath.Base(req.Path)
	}
	log = log.With(slog.String("trace", name))
	a := &Analysis{
		Name:        name,
		Diagnostics: diag.NewBag(req.MaxDiagnostics),
		Timer:       observ.NewTimer(),
	}

	ctx, span := trace.Start(ctx, trace.ScopeFile, "file:"+name)
	defer span.End("")

	doc, raws, err := load(ctx, req, name, a)
	if err != nil {
		return nil, err
	}
	a.Key = cache.KeyFor(doc)

	if hit := lookup(ctx, req, name, a, log); hit {
		return a, nil
	}
	if len(raws) == 0 {
		a.Diagnostics.Add(diag.Diagnostic{
			Severity: diag.SevInfo,
			Code:     diag.LoadNoEvents,
			Message:  "document contains no TraceEvent elements",
		})
		log.Info("no trace events found")
	}

	events := normalize(ctx, req, name, a, raws, log)
	build(ctx, req, name, a, events, log)
	store(ctx, req, a, len(doc), log)
	return a, nil
}

func load(ctx context.Context, req Request, name string, a *Analysis) ([]byte, []event.Raw, error) {
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageLoad))
	defer span.End("")
	idx := a.Timer.Begin(string(StageLoad))
	start := time.Now()
	emit(req.Progress, name, StageLoad, StatusWorking, nil, 0)

	doc := req.Data
	var err error
	if doc == nil {
		doc, err = tracexml.ReadFileLimited(req.Path, req.MaxBytes)
	} else if req.MaxBytes > 0 && int64(len(doc)) > req.MaxBytes {
		err = fmt.Errorf("%w (%d bytes)", tracexml.ErrTooLarge, req.MaxBytes)
	}
	var raws []event.Raw
	if err == nil {
		raws, err = tracexml.DecodeBytes(doc)
	}
	if err != nil {
		err = fmt.Errorf("load %s: %w", name, err)
		a.Timer.End(idx, "failed")
		emit(req.Progress, name, StageLoad, StatusError, err, time.Since(start))
		return nil, nil, err
	}
	a.Timer.End(idx, strconv.Itoa(len(raws))+" events")
	span.WithExtra("events", strconv.Itoa(len(raws)))
	emit(req.Progress, name, StageLoad, StatusDone, nil, time.Since(start))
	return doc, raws, nil
}

// lookup fills a from the cache and reports whether it did. Cache failures
// are logged and treated as misses.
func lookup(ctx context.Context, req Request, name string, a *Analysis, log *slog.Logger) bool {
	if req.Cache == nil {
		return false
	}
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageCache))
	idx := a.Timer.Begin(string(StageCache))
	p, ok, err := req.Cache.Get(a.Key)
	if err != nil {
		log.Warn("cache read failed", slog.String("key", a.Key.String()), slog.Any("err", err))
	}
	if !ok {
		a.Timer.End(idx, "miss")
		span.End("miss")
		return false
	}
	a.Groups = p.Groups
	a.Stats = p.Stats
	a.Origin = p.Origin
	a.LastEvent = p.LastEvent
	a.Diagnostics = diag.FromSnapshot(p.Diagnostics)
	a.Cached = true
	a.Timer.End(idx, "hit")
	span.End("hit")
	emit(req.Progress, name, StageCache, StatusDone, nil, a.Timer.Duration(string(StageCache)))
	log.Debug("cache hit", slog.String("key", a.Key.String()))
	return true
}

func normalize(ctx context.Context, req Request, name string, a *Analysis, raws []event.Raw, log *slog.Logger) []event.Normalized {
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageNormalize))
	defer span.End("")
	idx := a.Timer.Begin(string(StageNormalize))
	start := time.Now()
	emit(req.Progress, name, StageNormalize, StatusWorking, nil, 0)

	now := req.Now
	if now == nil {
		now = time.Now
	}
	if len(raws) > 0 {
		a.Origin, _ = event.Origin(raws, now)
	}
	events := event.Normalize(raws, event.Options{
		Logger:   log,
		Reporter: diag.BagReporter{Bag: a.Diagnostics},
		Now:      now,
	})
	for i := range events {
		if events[i].HasTime() && events[i].At.After(a.LastEvent) {
			a.LastEvent = events[i].At
		}
	}
	a.Timer.End(idx, "")
	emit(req.Progress, name, StageNormalize, StatusDone, nil, time.Since(start))
	return events
}

func build(ctx context.Context, req Request, name string, a *Analysis, events []event.Normalized, log *slog.Logger) {
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageBuild))
	idx := a.Timer.Begin(string(StageBuild))
	start := time.Now()
	emit(req.Progress, name, StageBuild, StatusWorking, nil, 0)

	res := hierarchy.BuildNormalized(events, hierarchy.Options{Logger: log, Diagnostics: a.Diagnostics})
	a.Groups = res.Groups
	a.Stats = res.Stats

	note := fmt.Sprintf("%d groups, %d discarded ends", res.Stats.Groups, res.Stats.DiscardedEnds)
	a.Timer.End(idx, note)
	span.WithExtra("groups", strconv.Itoa(res.Stats.Groups)).End("")
	emit(req.Progress, name, StageBuild, StatusDone, nil, time.Since(start))
	log.Debug("hierarchy built",
		slog.Int("groups", res.Stats.Groups),
		slog.Int("matched", res.Stats.Matched),
		slog.Int("discarded_ends", res.Stats.DiscardedEnds),
		slog.Int("open_at_eof", res.Stats.OpenAtEOF))
}

// store writes a to the cache unless the result depends on the clock.
func store(ctx context.Context, req Request, a *Analysis, docLen int, log *slog.Logger) {
	if req.Cache == nil || a.Diagnostics.Count(diag.EventUnparsedOrigin) > 0 {
		return
	}
	_, span := trace.Start(ctx, trace.ScopeStage, string(StageCache))
	defer span.End("store")
	p, err := cache.NewPayload(docLen)
	if err != nil {
		log.Warn("cache entry skipped", slog.Any("err", err))
		return
	}
	p.Groups = a.Groups
	p.Stats = a.Stats
	p.Origin = a.Origin
	p.LastEvent = a.LastEvent
	p.Diagnostics = a.Diagnostics.Snapshot()
	if err := req.Cache.Put(a.Key, p); err != nil {
		log.Warn("cache write failed", slog.String("key", a.Key.String()), slog.Any("err", err))
	}
}
