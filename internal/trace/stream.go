package trace

import (
	"io"
	"sync"
)

// StreamTracer writes each event to w as it arrives. Write errors are
// dropped so tracing never fails a command.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	seq    uint64
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	ev.Seq = t.seq
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if f, ok := t.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
