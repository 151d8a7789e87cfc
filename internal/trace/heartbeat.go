package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits periodic liveness events. A run whose heartbeats continue
// without span ends is stuck inside the last open span.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat returns nil when t is disabled or interval is not positive.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: t, interval: interval, stop: make(chan struct{})}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeCommand,
				Name:   "heartbeat",
				Detail: "#" + strconv.Itoa(n),
			})
		case <-h.stop:
			return
		}
	}
}

// Stop is safe on a nil Heartbeat and idempotent.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	h.wg.Wait()
}
