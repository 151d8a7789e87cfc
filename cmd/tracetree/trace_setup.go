package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"tracetree/internal/trace"
)

var (
	activeMu    sync.Mutex
	activeTrace *trace.Session
)

// setupTracing builds the self-tracer from the persistent trace flags and
// attaches it to the command context.
func setupTracing(cmd *cobra.Command) (func(), error) {
	pf := cmd.Root().PersistentFlags()
	output, err := pf.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := pf.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := pf.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// An output file without an explicit level traces stages.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelStage
	}

	session, err := trace.New(trace.Config{
		Level:      level,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), session))

	activeMu.Lock()
	activeTrace = session
	activeMu.Unlock()

	return func() {
		if err := session.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := session.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpTraceRing writes the in-memory trace ring of the last command, if it
// kept one.
func dumpTraceRing(w io.Writer) {
	activeMu.Lock()
	session := activeTrace
	activeMu.Unlock()
	if session == nil || session.Ring == nil {
		return
	}
	events := session.Ring.Snapshot()
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(w, "--- last %d trace events ---\n", len(events))
	_ = session.Ring.Dump(w, trace.FormatText)
}
