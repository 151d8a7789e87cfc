// Package cache keeps built interaction forests on disk, keyed by the
// content of the tracer export they came from.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
)

// SchemaVersion changes whenever Payload or hierarchy.Node changes shape.
const SchemaVersion uint16 = 1

// Key is the SHA-256 of the schema version followed by the document bytes.
type Key [sha256.Size]byte

// KeyFor hashes doc under the current schema.
func KeyFor(doc []byte) Key {
	h := sha256.New()
	var v [2]byte
	binary.BigEndian.PutUint16(v[:], SchemaVersion)
	h.Write(v[:])
	h.Write(doc)
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether k was never computed.
func (k Key) IsZero() bool { return k == Key{} }

// Payload is what a cache entry holds.
type Payload struct {
	Schema      uint16            `msgpack:"schema"`
	SourceBytes uint64            `msgpack:"source_bytes"`
	Origin      time.Time         `msgpack:"origin"`
	LastEvent   time.Time         `msgpack:"last_event"`
	Groups      []*hierarchy.Node `msgpack:"groups"`
	Stats       hierarchy.Stats   `msgpack:"stats"`
	Diagnostics diag.Snapshot     `msgpack:"diagnostics"`
}

// NewPayload stamps the schema and document size onto a payload.
func NewPayload(docLen int) (*Payload, error) {
	n, err := safecast.Conv[uint64](docLen)
	if err != nil {
		return nil, fmt.Errorf("document length: %w", err)
	}
	return &Payload{Schema: SchemaVersion, SourceBytes: n}, nil
}

// Disk stores payloads as msgpack files under a directory. Safe for
// concurrent use within one process; entries are replaced atomically.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir is $XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open creates dir if needed.
func Open(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (c *Disk) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Disk) pathFor(key Key) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "forests", hexKey[:2], hexKey+".mp")
}

// Put writes p under key. A nil cache ignores the call.
func (c *Disk) Put(key Key, p *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op after a successful rename

	if err := msgpack.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Get loads the entry for key. Entries from another schema are reported as
// misses.
func (c *Disk) Get(key Key) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if p.Schema != SchemaVersion {
		return nil, false, nil
	}
	return &p, true, nil
}

// Clean removes every entry. The directory itself is recreated empty.
func (c *Disk) Clean() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405.000000000")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0o755)
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
