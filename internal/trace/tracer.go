package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// Config describes the tracer built by New.
type Config struct {
	Level Level
	// Output overrides OutputPath when set.
	Output io.Writer
	// OutputPath is a file path; "" or "-" means stderr.
	OutputPath string
	// RingSize is the number of events kept for failure dumps.
	RingSize  int
	Heartbeat time.Duration
}

// DefaultRingSize is used when Config.RingSize is not positive.
const DefaultRingSize = 2048

// Session is a configured tracer plus the ring that backs failure dumps.
type Session struct {
	Tracer
	Ring      *RingTracer
	heartbeat *Heartbeat
}

// New builds a tracer from cfg. LevelOff yields the Nop tracer and a nil ring.
// LevelError keeps events only in the ring; higher levels also stream them.
func New(cfg Config) (*Session, error) {
	if cfg.Level == LevelOff {
		return &Session{Tracer: Nop}, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	ring := NewRingTracer(cfg.RingSize, cfg.Level)
	s := &Session{Tracer: ring, Ring: ring}
	if cfg.Level > LevelError {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, formatFor(cfg.OutputPath))
		s.Tracer = NewMultiTracer(cfg.Level, stream, ring)
	}
	s.heartbeat = StartHeartbeat(s.Tracer, cfg.Heartbeat)
	return s, nil
}

// Close stops the heartbeat and closes the underlying tracer.
func (s *Session) Close() error {
	s.heartbeat.Stop()
	return s.Tracer.Close()
}

func formatFor(path string) Format {
	if strings.HasSuffix(path, ".ndjson") {
		return FormatNDJSON
	}
	return FormatText
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

// nopCloser keeps Close from closing stderr.
type nopCloser struct{ io.Writer }
