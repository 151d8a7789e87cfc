package hierarchy

import (
	"fmt"
	"math"
	"testing"

	"tracetree/internal/diag"
	"tracetree/internal/event"
)

// ts returns a tracer timestamp s seconds after 2024-01-15 10:30:00.
func ts(s float64) string {
	ms := int(math.Round(s * 1000))
	return fmt.Sprintf("20240115T1030%02d.%03d GMT", ms/1000, ms%1000)
}

func begin(name, seq, interaction string, at float64) event.Raw {
	return event.Raw{Name: name, StepMethod: "Begin", Sequence: seq, Interaction: interaction, DateTime: ts(at)}
}

func end(name, seq, interaction string, at float64) event.Raw {
	return event.Raw{Name: name, StepMethod: "End", Sequence: seq, Interaction: interaction, DateTime: ts(at)}
}

func TestBuildNestedScenario(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "seq1", "1", 0),
		begin("B", "seq2", "1", 1),
		end("B", "seq3", "1", 3),
		end("A", "seq4", "1", 5),
	}, Options{})

	if len(res.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(res.Groups))
	}
	g := res.Groups[0]
	if g.Kind != KindInteraction || g.Name != "Interaction 1" {
		t.Fatalf("group = %+v", g)
	}
	if g.Duration != 5 || g.Open {
		t.Fatalf("group duration = %v open=%v, want 5 closed", g.Duration, g.Open)
	}
	if len(g.Children) != 1 {
		t.Fatalf("top-level children = %d, want 1", len(g.Children))
	}
	a := g.Children[0]
	if a.Name != "A" || a.Duration != 5 || a.StartSequence != "seq1" || a.EndSequence != "seq4" {
		t.Fatalf("A = %+v", a)
	}
	if len(a.Children) != 1 {
		t.Fatalf("A children = %d, want 1", len(a.Children))
	}
	b := a.Children[0]
	if b.Name != "B" || b.Duration != 2 || b.Open {
		t.Fatalf("B = %+v", b)
	}
	if g.EndSequence != "seq4" {
		t.Fatalf("group end sequence = %q, want seq4", g.EndSequence)
	}
	if res.Stats.Matched != 2 || res.Stats.MaxDepth != 2 || res.Stats.DiscardedEnds != 0 {
		t.Fatalf("stats = %+v", res.Stats)
	}
}

func TestBuildDurationIdentity(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0.125),
		begin("B", "2", "1", 0.5),
		end("B", "3", "1", 1.75),
		begin("C", "4", "1", 2),
		end("C", "5", "1", 2.001),
		end("A", "6", "1", 9.999),
	}, Options{})
	for _, g := range res.Groups {
		Walk(g, 0, func(n *Node, _ int) bool {
			if n.Open {
				t.Fatalf("%s unexpectedly open", n.Name)
			}
			if n.Duration != n.End-n.Start {
				t.Fatalf("%s: duration %v != end-start %v", n.Name, n.Duration, n.End-n.Start)
			}
			if n.Duration < 0 {
				t.Fatalf("%s: negative duration", n.Name)
			}
			return true
		})
	}
}

func TestBuildEndOnEmptyStack(t *testing.T) {
	res := Build([]event.Raw{end("X", "1", "1", 0)}, Options{})
	if len(res.Groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(res.Groups))
	}
	if res.Stats.DiscardedEnds != 1 {
		t.Fatalf("discarded = %d, want 1", res.Stats.DiscardedEnds)
	}
	if res.Diagnostics.Count(diag.TraceDiscardedEnd) != 1 {
		t.Fatal("expected discarded-end diagnostic")
	}
}

func TestBuildMismatchedEndLeavesStack(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0),
		end("Z", "2", "1", 1),
		end("A", "3", "1", 2),
	}, Options{})
	a := res.Groups[0].Children[0]
	if a.Open || a.EndSequence != "3" || a.Duration != 2 {
		t.Fatalf("A = %+v", a)
	}
	if res.Stats.DiscardedEnds != 1 {
		t.Fatalf("discarded = %d, want 1", res.Stats.DiscardedEnds)
	}
}

func TestBuildOpenAtEOF(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0),
		begin("B", "2", "1", 1),
		end("B", "3", "1", 2),
	}, Options{})
	g := res.Groups[0]
	a := g.Children[0]
	if !a.Open || a.EndSequence != "" || a.Seconds() != 0 {
		t.Fatalf("A should be open: %+v", a)
	}
	if !g.Open {
		t.Fatal("group should stay open while its top-level activity is open")
	}
	if a.Children[0].Open {
		t.Fatal("B should be closed")
	}
	if res.Stats.OpenAtEOF != 1 || res.Diagnostics.Count(diag.TraceOpenAtEOF) != 1 {
		t.Fatalf("open at eof = %d", res.Stats.OpenAtEOF)
	}
}

func TestBuildChildrenKeepEventOrder(t *testing.T) {
	res := Build([]event.Raw{
		begin("P", "1", "1", 0),
		begin("short", "2", "1", 0),
		end("short", "3", "1", 0.1),
		begin("long", "4", "1", 0.1),
		end("long", "5", "1", 5),
		begin("mid", "6", "1", 5),
		end("mid", "7", "1", 6),
		end("P", "8", "1", 6),
	}, Options{})
	kids := res.Groups[0].Children[0].Children
	want := []string{"short", "long", "mid"}
	for i, w := range want {
		if kids[i].Name != w {
			t.Fatalf("child %d = %q, want %q", i, kids[i].Name, w)
		}
	}
}

func TestBuildInterleavedInteractions(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "2", 0),
		end("A", "2", "2", 1),
		begin("B", "3", "1", 2),
		end("B", "4", "1", 4),
		begin("C", "5", "2", 5),
		end("C", "6", "2", 6),
	}, Options{})
	if len(res.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(res.Groups))
	}
	first, second := res.Groups[0], res.Groups[1]
	if first.Interaction != "2" || second.Interaction != "1" {
		t.Fatalf("order = %s, %s", first.Interaction, second.Interaction)
	}
	if len(first.Children) != 2 || first.Duration != 6 {
		t.Fatalf("interaction 2 = %d children, duration %v", len(first.Children), first.Duration)
	}
	if len(second.Children) != 1 || second.Duration != 2 {
		t.Fatalf("interaction 1 = %d children, duration %v", len(second.Children), second.Duration)
	}
	for i := 1; i < len(res.Groups); i++ {
		if res.Groups[i-1].Start > res.Groups[i].Start {
			t.Fatal("groups not sorted by start")
		}
	}
}

func TestBuildMissingInteractionUsesSentinel(t *testing.T) {
	res := Build([]event.Raw{
		{Name: "A", StepMethod: "Begin", Sequence: "1", DateTime: ts(0)},
		{Name: "A", StepMethod: "End", Sequence: "2", DateTime: ts(1)},
	}, Options{})
	if res.Groups[0].Interaction != event.UnknownInteraction {
		t.Fatalf("interaction = %q", res.Groups[0].Interaction)
	}
}

func TestBuildKeyNamePairing(t *testing.T) {
	res := Build([]event.Raw{
		{Name: "Activity", KeyName: "RULE-OBJ-ACTIVITY Foo", EventType: "Activity Begin", Sequence: "1", Interaction: "1", DateTime: ts(0)},
		{Name: "Activity", KeyName: "RULE-OBJ-ACTIVITY Bar", EventType: "Activity End", Sequence: "2", Interaction: "1", DateTime: ts(1)},
		{Name: "Activity", KeyName: "RULE-OBJ-ACTIVITY Foo", EventType: "Activity End", Sequence: "3", Interaction: "1", DateTime: ts(2)},
	}, Options{})
	a := res.Groups[0].Children[0]
	if a.Name != "RULE-OBJ-ACTIVITY Foo" || a.EndSequence != "3" {
		t.Fatalf("node = %+v", a)
	}
}

func TestBuildIgnoresCacheHits(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0),
		{Name: "Data Page", StepMethod: "instance found", EventType: "Begin", Sequence: "2", Interaction: "1", DateTime: ts(1)},
		end("A", "3", "1", 2),
	}, Options{})
	a := res.Groups[0].Children[0]
	if len(a.Children) != 0 || a.Open {
		t.Fatalf("A = %+v", a)
	}
	if res.Stats.Ignored != 1 {
		t.Fatalf("ignored = %d, want 1", res.Stats.Ignored)
	}
}

func TestBuildUnparseableTimestampClampsNegative(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0),
		begin("B", "2", "1", 3),
		{Name: "B", StepMethod: "End", Sequence: "3", Interaction: "1", DateTime: "??"},
		end("A", "4", "1", 4),
	}, Options{})
	b := res.Groups[0].Children[0].Children[0]
	if b.Open || b.Duration != 0 {
		t.Fatalf("B = %+v", b)
	}
	if res.Diagnostics.Count(diag.EventUnparsedTimestamp) != 1 {
		t.Fatal("expected unparsed timestamp diagnostic")
	}
	if res.Diagnostics.Count(diag.TraceNegativeDuration) != 1 {
		t.Fatal("expected negative duration diagnostic")
	}
}

func TestFind(t *testing.T) {
	res := Build([]event.Raw{
		begin("A", "1", "1", 0),
		begin("B", "2", "1", 1),
		end("B", "3", "1", 2),
		end("A", "4", "1", 3),
	}, Options{})
	if n := Find(res.Groups, "2"); n == nil || n.Name != "B" {
		t.Fatalf("Find(2) = %+v", n)
	}
	if n := Find(res.Groups, InteractionKeyPrefix+"1"); n == nil || n.Kind != KindInteraction {
		t.Fatalf("Find(interaction) = %+v", n)
	}
	if Find(res.Groups, "missing") != nil {
		t.Fatal("expected nil")
	}
}
