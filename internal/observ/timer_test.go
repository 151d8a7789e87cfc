package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTimer()
	tm.now = func() time.Time { return clock }

	load := tm.Begin("load")
	clock = clock.Add(20 * time.Millisecond)
	tm.End(load, "3 events")
	tm.Add("build", 5*time.Millisecond, "")
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.TotalMS != 25 {
		t.Fatalf("report: %+v", r)
	}
	if r.Phases[0].DurationMS != 20 || r.Phases[0].Note != "3 events" {
		t.Fatalf("load phase: %+v", r.Phases[0])
	}
	if tm.Duration("build") != 5*time.Millisecond {
		t.Fatalf("Duration(build) = %v", tm.Duration("build"))
	}
	s := tm.Summary()
	if !strings.Contains(s, "load") || !strings.Contains(s, "// 3 events") || !strings.Contains(s, "25.00 ms") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Add("y", time.Second, "")
	if tm.Duration("x") != 0 || len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer should record nothing")
	}
}
