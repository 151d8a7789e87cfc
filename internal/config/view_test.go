package config

import (
	"testing"

	"tracetree/internal/hierarchy"
)

func TestParseExpand(t *testing.T) {
	for in, want := range map[string]Expand{"none": ExpandNone, " TOP ": ExpandTop, "All": ExpandAll} {
		got, err := ParseExpand(in)
		if err != nil || got != want {
			t.Errorf("ParseExpand(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExpand("some"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestViewState(t *testing.T) {
	leaf := &hierarchy.Node{Name: "L", StartSequence: "3", Duration: 1}
	mid := &hierarchy.Node{Name: "M", StartSequence: "2", Duration: 2, Children: []*hierarchy.Node{leaf}}
	groups := []*hierarchy.Node{{Kind: hierarchy.KindInteraction, Interaction: "1", Duration: 2, Children: []*hierarchy.Node{mid}}}

	tests := []struct {
		expand Expand
		want   int
	}{
		{ExpandNone, 0},
		{ExpandTop, 3},
		{ExpandAll, 2},
	}
	for _, tt := range tests {
		s := View{Threshold: 150, HideMinor: true, Expand: tt.expand}.State(groups)
		if s.ExpandedCount() != tt.want {
			t.Errorf("%s: expanded %d, want %d", tt.expand, s.ExpandedCount(), tt.want)
		}
		if s.Threshold() != 100 || !s.HideMinor() {
			t.Errorf("%s: threshold %v hide %v", tt.expand, s.Threshold(), s.HideMinor())
		}
	}
}
