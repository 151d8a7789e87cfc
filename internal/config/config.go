// Package config loads tracetree.toml and its environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileName is the project configuration file looked up from the working directory.
const FileName = "tracetree.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRACETREE_"

var (
	ErrNotFound = errors.New("config file not found")
	ErrExists   = errors.New("config file already exists")
)

// Expand is the initial expansion policy of a view.
type Expand string

const (
	ExpandNone Expand = "none"
	ExpandTop  Expand = "top"
	ExpandAll  Expand = "all"
)

// Storage selects the server's trace store.
type Storage string

const (
	StorageMemory Storage = "memory"
	StorageSQLite Storage = "sqlite"
)

type View struct {
	Threshold float64 `toml:"threshold"`
	HideMinor bool    `toml:"hide_minor"`
	Expand    Expand  `toml:"expand"`
}

type Cache struct {
	Enabled bool `toml:"enabled"`
	// Dir defaults to $XDG_CACHE_HOME/tracetree when empty.
	Dir string `toml:"dir"`
}

type Server struct {
	Addr        string  `toml:"addr"`
	Storage     Storage `toml:"storage"`
	SQLitePath  string  `toml:"sqlite_path"`
	MaxUploadMB int     `toml:"max_upload_mb"`
}

type Config struct {
	View   View   `toml:"view"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`

	// Path is the file the configuration came from, empty for defaults.
	Path string `toml:"-"`
}

func Default() Config {
	return Config{
		View:  View{Threshold: 3, Expand: ExpandTop},
		Cache: Cache{Enabled: true},
		Server: Server{
			Addr:        ":7428",
			Storage:     StorageMemory,
			SQLitePath:  "tracetree.db",
			MaxUploadMB: 64,
		},
	}
}

// MaxUploadBytes converts the upload limit to bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func (c Config) Validate() error {
	if math.IsNaN(c.View.Threshold) || c.View.Threshold < 0 || c.View.Threshold > 100 {
		return fmt.Errorf("view.threshold must be within 0..100, got %v", c.View.Threshold)
	}
	switch c.View.Expand {
	case ExpandNone, ExpandTop, ExpandAll:
	default:
		return fmt.Errorf("view.expand must be none|top|all, got %q", c.View.Expand)
	}
	switch c.Server.Storage {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Server.SQLitePath) == "" {
			return errors.New("server.sqlite_path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("server.storage must be memory|sqlite, got %q", c.Server.Storage)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// Find walks up from startDir to locate FileName.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// LoadFile decodes path over the defaults. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("view", "expand") {
		cfg.View.Expand = Expand(strings.ToLower(string(cfg.View.Expand)))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load finds FileName from startDir and decodes it, falling back to the
// defaults when there is none.
func Load(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays TRACETREE_* variables read through lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	if v, ok := lookup(EnvPrefix + "THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTHRESHOLD: %w", EnvPrefix, err))
		} else {
			c.View.Threshold = f
		}
	}
	boolean("HIDE_MINOR", &c.View.HideMinor)
	if v, ok := lookup(EnvPrefix + "EXPAND"); ok {
		c.View.Expand = Expand(strings.ToLower(v))
	}
	boolean("CACHE", &c.Cache.Enabled)
	str("CACHE_DIR", &c.Cache.Dir)
	str("ADDR", &c.Server.Addr)
	if v, ok := lookup(EnvPrefix + "STORAGE"); ok {
		c.Server.Storage = Storage(strings.ToLower(v))
	}
	str("SQLITE_PATH", &c.Server.SQLitePath)
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_MB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_MB: %w", EnvPrefix, err))
		} else {
			c.Server.MaxUploadMB = n
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

// Init writes the default configuration to dir/FileName.
func Init(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s: %w", path, ErrExists)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return path, fmt.Errorf("%s: failed to encode TOML: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
