package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"tracetree/internal/storage/storagetest"
)

func TestSQLiteStore(t *testing.T) {
	s, err := New("file:tracetree_store?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	storagetest.Run(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	r := storagetest.Sample("kept.xml")
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "kept.xml" || len(got.Groups) != 1 {
		t.Fatalf("reopened record: %+v", got)
	}
}
