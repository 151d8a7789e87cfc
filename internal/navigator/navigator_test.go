package navigator

import (
	"fmt"
	"testing"

	"tracetree/internal/hierarchy"
)

// leaf builds a closed activity with key seq and duration d.
func leaf(seq string, d float64, kids ...*hierarchy.Node) *hierarchy.Node {
	return &hierarchy.Node{Name: "n" + seq, StartSequence: seq, Duration: d, Children: kids}
}

func group(id string, d float64, kids ...*hierarchy.Node) *hierarchy.Node {
	return &hierarchy.Node{Kind: hierarchy.KindInteraction, Name: "Interaction " + id, Interaction: id, Duration: d, Children: kids}
}

// forest:
//
//	g1 (4): a(4) -> [b(1), c(3) -> [d(2), e(2)]]
//	g2 (10): f(10) -> [h(9.9), i(0.1)]
func forest() []*hierarchy.Node {
	return []*hierarchy.Node{
		group("1", 4, leaf("a", 4, leaf("b", 1), leaf("c", 3, leaf("d", 2), leaf("e", 2)))),
		group("2", 10, leaf("f", 10, leaf("h", 9.9), leaf("i", 0.1))),
	}
}

func keys(nodes []*hierarchy.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key()
	}
	return out
}

func TestMaxDurationPath(t *testing.T) {
	got := keys(MaxDurationPath(forest()))
	want := []string{"interaction:2", "f", "h"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
}

func TestMaxDurationPathTiesPickFirst(t *testing.T) {
	groups := forest()[:1]
	got := keys(MaxDurationPath(groups))
	want := []string{"interaction:1", "a", "c", "d"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
}

func TestMaxDurationPathOneNodePerLevelEndsAtLeaf(t *testing.T) {
	for _, groups := range [][]*hierarchy.Node{forest(), forest()[:1]} {
		path := MaxDurationPath(groups)
		for i := 1; i < len(path); i++ {
			parent := path[i-1]
			found := false
			for _, c := range parent.Children {
				if c == path[i] {
					found = true
				}
				if c.Seconds() > path[i].Seconds() {
					t.Fatalf("%s is not the longest child of %s", path[i].Name, parent.Name)
				}
			}
			if !found {
				t.Fatalf("%s is not a child of %s", path[i].Name, parent.Name)
			}
		}
		if last := path[len(path)-1]; last.HasChildren() {
			t.Fatalf("path ends at %s which has children", last.Name)
		}
	}
}

func TestMaxDurationPathZeroDurationsStillDescend(t *testing.T) {
	groups := []*hierarchy.Node{group("1", 0, leaf("a", 0, &hierarchy.Node{StartSequence: "b", Open: true}))}
	got := keys(MaxDurationPath(groups))
	if len(got) != 3 {
		t.Fatalf("path = %v, want three levels", got)
	}
}

func TestExpandMaxDurationPathEmpty(t *testing.T) {
	if got := ExpandMaxDurationPath(nil); len(got) != 0 {
		t.Fatalf("ExpandMaxDurationPath(nil) = %v", got)
	}
}

func TestCommandsReturnNewState(t *testing.T) {
	s0 := NewViewState()
	s1 := s0.Apply(Toggle{Key: "a"})
	if s0.IsExpanded("a") {
		t.Fatal("base state mutated")
	}
	if !s1.IsExpanded("a") {
		t.Fatal("toggle did not expand")
	}
	s2 := s1.Apply(Toggle{Key: "a"})
	if s2.IsExpanded("a") || !s1.IsExpanded("a") {
		t.Fatal("toggle off mutated or failed")
	}

	s3 := s1.Apply(ExpandTopPath{Groups: forest()})
	if got := s3.Expanded(); fmt.Sprint(got) != "[f h interaction:2]" {
		t.Fatalf("expanded = %v", got)
	}
	s4 := s3.Apply(CollapseAll{})
	if s4.ExpandedCount() != 0 || s3.ExpandedCount() != 3 {
		t.Fatal("collapse all failed or mutated")
	}
}

func TestThresholdClamped(t *testing.T) {
	s := NewViewState()
	if s.Threshold() != DefaultThreshold {
		t.Fatalf("default threshold = %v", s.Threshold())
	}
	if got := s.Apply(SetThreshold{Value: 150}).Threshold(); got != 100 {
		t.Fatalf("threshold = %v, want 100", got)
	}
	if got := s.Apply(AdjustThreshold{Delta: -10}).Threshold(); got != 0 {
		t.Fatalf("threshold = %v, want 0", got)
	}
}

func TestRenderThresholdZeroShowsEverything(t *testing.T) {
	groups := forest()
	s := NewViewState().Apply(SetHideMinor{On: true}, SetThreshold{Value: 0}, ExpandAll{Groups: groups})
	hidden := NewViewState().Apply(SetHideMinor{On: false}, ExpandAll{Groups: groups})
	if got, want := len(Render(groups, s).Rows), len(Render(groups, hidden).Rows); got != want || got != 10 {
		t.Fatalf("rows = %d, unpruned = %d, want 10", got, want)
	}
}

func TestRenderThresholdHundred(t *testing.T) {
	groups := forest()
	s := NewViewState().Apply(SetHideMinor{On: true}, SetThreshold{Value: 100}, ExpandAll{Groups: groups})
	v := Render(groups, s)
	if len(v.Rows) != 0 || v.HiddenRoots != 2 {
		t.Fatalf("rows = %d hidden roots = %d", len(v.Rows), v.HiddenRoots)
	}

	// A single root with a single full-length child survives at 100%.
	solo := []*hierarchy.Node{group("1", 5, leaf("a", 5))}
	v = Render(solo, s.Apply(ExpandAll{Groups: solo}))
	if len(v.Rows) != 2 {
		t.Fatalf("solo rows = %d, want 2", len(v.Rows))
	}
}

func TestRenderHideMinorIsReversible(t *testing.T) {
	groups := forest()
	base := NewViewState().Apply(ExpandAll{Groups: groups}, SetThreshold{Value: 5})
	on := base.Apply(ToggleHideMinor{})
	off := on.Apply(ToggleHideMinor{})

	vOn := Render(groups, on)
	vOff := Render(groups, off)
	if len(vOff.Rows) != 10 {
		t.Fatalf("rows with hiding off = %d, want 10", len(vOff.Rows))
	}
	// i is 0.1 of 10 -> 1% of parent; it is the only minor node.
	if len(vOn.Rows) != 9 {
		t.Fatalf("rows with hiding on = %d, want 9", len(vOn.Rows))
	}
	for _, r := range vOn.Rows {
		if r.Node.StartSequence == "f" && r.HiddenChildren != 1 {
			t.Fatalf("f hidden children = %d, want 1", r.HiddenChildren)
		}
	}
}

func TestRenderOnlyExpandedChildren(t *testing.T) {
	groups := forest()
	s := NewViewState().Apply(ExpandTopPath{Groups: groups})
	v := Render(groups, s)
	var names []string
	for _, r := range v.Rows {
		names = append(names, r.Node.Key())
	}
	want := []string{"interaction:1", "interaction:2", "f", "h", "i"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("rows = %v, want %v", names, want)
	}
	for _, r := range v.Rows {
		if r.Node.Key() == "f" && (!r.Expanded || r.Depth != 1 || !r.MaxSibling) {
			t.Fatalf("row f = %+v", r)
		}
	}
}

func TestCountMinor(t *testing.T) {
	g := forest()[1]
	f := g.Children[0]
	if got := CountMinor(f, f.Children, 3); got != 1 {
		t.Fatalf("CountMinor = %d, want 1", got)
	}
}
