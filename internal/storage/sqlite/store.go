// Package sqlite persists traces in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
	"tracetree/internal/storage"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// forest is the JSON document kept in the payload column.
type forest struct {
	Origin      time.Time         `json:"origin,omitzero"`
	Groups      []*hierarchy.Node `json:"groups"`
	Diagnostics diag.Snapshot     `json:"diagnostics"`
}

// New opens dbPath, which may be a file path or a "file:" URI.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			source_bytes INTEGER NOT NULL,
			last_event INTEGER NOT NULL DEFAULT 0,
			stats TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_created ON traces(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Put(ctx context.Context, r *storage.Record) error {
	storage.Prepare(r)
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	payload, err := json.Marshal(forest{Origin: r.Origin, Groups: r.Groups, Diagnostics: r.Diagnostics})
	if err != nil {
		return fmt.Errorf("encode forest: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO traces (id, name, created_at, source_bytes, last_event, stats, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.CreatedAt.UnixNano(), r.SourceBytes, unixNanos(r.LastEvent), string(stats), string(payload))
	if err != nil {
		return fmt.Errorf("insert trace %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, source_bytes, last_event, stats, payload FROM traces WHERE id = ?`, id)
	var (
		r                  storage.Record
		created, last      int64
		statsJSON, payload string
	)
	if err := row.Scan(&r.ID, &r.Name, &created, &r.SourceBytes, &last, &statsJSON, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("query trace %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, fmt.Errorf("decode stats of %s: %w", id, err)
	}
	var f forest
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return nil, fmt.Errorf("decode forest of %s: %w", id, err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.LastEvent = fromNanos(last)
	r.Origin = f.Origin
	r.Groups = f.Groups
	r.Diagnostics = f.Diagnostics
	return &r, nil
}

func (s *Store) List(ctx context.Context) ([]storage.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, source_bytes, last_event, stats FROM traces ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	out := []storage.Summary{}
	for rows.Next() {
		var (
			sum           storage.Summary
			created, last int64
			statsJSON     string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &created, &sum.SourceBytes, &last, &statsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(statsJSON), &sum.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of %s: %w", sum.ID, err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		sum.LastEvent = fromNanos(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trace %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
