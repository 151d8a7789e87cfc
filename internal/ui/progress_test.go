package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tracetree/internal/pipeline"
)

func TestProgressTracksFiles(t *testing.T) {
	ch := make(chan pipeline.Event)
	m := NewProgressModel("analysing", []string{"a.xml", "b.xml", "c.xml"}, ch).(*progressModel)

	for _, ev := range []pipeline.Event{
		{File: "a.xml", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
		{File: "a.xml", Stage: pipeline.StageLoad, Status: pipeline.StatusDone},
		{File: "b.xml", Stage: pipeline.StageCache, Status: pipeline.StatusDone},
		{File: "c.xml", Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: errors.New("bad xml")},
		{File: "unknown.xml", Stage: pipeline.StageBuild, Status: pipeline.StatusDone},
	} {
		m.Update(eventMsg(ev))
	}

	want := []string{"loading", "done", "error"}
	for i, w := range want {
		if m.items[i].status != w {
			t.Errorf("item %d status = %q, want %q", i, m.items[i].status, w)
		}
	}
	if m.items[1].note != "cached" || m.items[2].note != "bad xml" {
		t.Fatalf("notes = %q, %q", m.items[1].note, m.items[2].note)
	}
	if m.finished != 2 {
		t.Fatalf("finished = %d", m.finished)
	}
	if got := m.percent(); got < 0.73 || got > 0.74 {
		t.Fatalf("percent = %v", got)
	}

	// Events after a file finished do not reopen it.
	m.Update(eventMsg{File: "b.xml", Stage: pipeline.StageNormalize, Status: pipeline.StatusWorking})
	if m.items[1].status != "done" {
		t.Fatalf("finished file changed status to %q", m.items[1].status)
	}

	m.Update(eventMsg{File: "a.xml", Stage: pipeline.StageBuild, Status: pipeline.StatusDone})
	if !strings.Contains(m.View(), "(3/3)") {
		t.Fatalf("header:\n%s", m.View())
	}
}

func TestProgressQuitsWhenChannelCloses(t *testing.T) {
	ch := make(chan pipeline.Event)
	close(ch)
	m := NewProgressModel("analysing", []string{"a.xml"}, ch).(*progressModel)
	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("msg = %T", msg)
	}
	_, cmd := m.Update(msg)
	if _, ok := cmd().(tea.QuitMsg); !ok || !m.done {
		t.Fatal("closing the channel should quit")
	}
	if !strings.HasPrefix(m.View(), "done:") {
		t.Fatalf("view:\n%s", m.View())
	}
}
