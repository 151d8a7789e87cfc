// Package storagetest holds behaviour checks shared by every storage.Store.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
	"tracetree/internal/storage"
)

// Sample returns a small record with one interaction and one diagnostic.
func Sample(name string) *storage.Record {
	bag := diag.NewBag(8)
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.TraceDiscardedEnd, Message: "end of X", Sequence: "9"})
	leaf := &hierarchy.Node{Name: "Load", Interaction: "1", StartSequence: "2", EndSequence: "3", Start: 0.5, End: 2, Duration: 1.5}
	return &storage.Record{
		Name:        name,
		SourceBytes: 512,
		Origin:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		LastEvent:   time.Date(2024, 1, 15, 10, 30, 2, 0, time.UTC),
		Groups: []*hierarchy.Node{{
			Kind:          hierarchy.KindInteraction,
			Name:          "Interaction 1",
			Interaction:   "1",
			StartSequence: "2",
			Start:         0.5,
			End:           2,
			Duration:      1.5,
			Children:      []*hierarchy.Node{leaf},
		}},
		Stats:       hierarchy.Stats{Events: 3, Begins: 1, Ends: 2, Matched: 1, DiscardedEnds: 1, Groups: 1, MaxDepth: 1},
		Diagnostics: bag.Snapshot(),
	}
}

// Run exercises s through put, get, list and delete.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	first := Sample("first.xml")
	first.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Put should assign an ID")
	}
	second := Sample("second.xml")
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if second.CreatedAt.IsZero() {
		t.Fatal("Put should stamp CreatedAt")
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "first.xml" || got.SourceBytes != 512 || got.Stats != first.Stats {
		t.Fatalf("Get header: %+v", got)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) || !got.LastEvent.Equal(first.LastEvent) || !got.Origin.Equal(first.Origin) {
		t.Fatalf("times: created=%v last=%v origin=%v", got.CreatedAt, got.LastEvent, got.Origin)
	}
	if len(got.Groups) != 1 || got.Groups[0].Kind != hierarchy.KindInteraction || len(got.Groups[0].Children) != 1 {
		t.Fatalf("forest: %+v", got.Groups)
	}
	if got.Groups[0].Children[0].Duration != 1.5 {
		t.Fatalf("leaf: %+v", got.Groups[0].Children[0])
	}
	if bag := diag.FromSnapshot(got.Diagnostics); bag.Count(diag.TraceDiscardedEnd) != 1 || bag.Len() != 1 {
		t.Fatalf("diagnostics: %+v", got.Diagnostics)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("List order: %+v", list)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	if err := s.Delete(ctx, first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}
