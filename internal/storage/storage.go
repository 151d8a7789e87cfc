// Package storage defines where the HTTP server keeps analysed traces.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
)

var ErrNotFound = errors.New("trace not found")

// Record is one uploaded and analysed tracer export.
type Record struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CreatedAt   time.Time         `json:"createdAt"`
	SourceBytes int64             `json:"sourceBytes"`
	Origin      time.Time         `json:"origin,omitzero"`
	LastEvent   time.Time         `json:"lastEvent,omitzero"`
	Groups      []*hierarchy.Node `json:"groups"`
	Stats       hierarchy.Stats   `json:"stats"`
	Diagnostics diag.Snapshot     `json:"diagnostics"`
}

// Summary is a Record without its forest.
type Summary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CreatedAt   time.Time       `json:"createdAt"`
	SourceBytes int64           `json:"sourceBytes"`
	LastEvent   time.Time       `json:"lastEvent,omitzero"`
	Stats       hierarchy.Stats `json:"stats"`
}

func (r *Record) Summary() Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		CreatedAt:   r.CreatedAt,
		SourceBytes: r.SourceBytes,
		LastEvent:   r.LastEvent,
		Stats:       r.Stats,
	}
}

// Store keeps records. Stored forests are shared with callers and must be
// treated as read-only.
type Store interface {
	// Put saves r, assigning ID and CreatedAt when they are empty.
	Put(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns summaries, newest first.
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Prepare fills ID and CreatedAt for a new record.
func Prepare(r *Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}
