package config

import (
	"fmt"
	"strings"

	"tracetree/internal/hierarchy"
	"tracetree/internal/navigator"
)

// ParseExpand accepts none, top or all in any case.
func ParseExpand(s string) (Expand, error) {
	switch e := Expand(strings.ToLower(strings.TrimSpace(s))); e {
	case ExpandNone, ExpandTop, ExpandAll:
		return e, nil
	}
	return "", fmt.Errorf("expand must be none|top|all, got %q", s)
}

// State returns the initial navigator state for groups under these settings.
func (v View) State(groups []*hierarchy.Node) navigator.ViewState {
	s := navigator.NewViewState().Apply(
		navigator.SetThreshold{Value: v.Threshold},
		navigator.SetHideMinor{On: v.HideMinor},
	)
	switch v.Expand {
	case ExpandTop:
		s = s.Apply(navigator.ExpandTopPath{Groups: groups})
	case ExpandAll:
		s = s.Apply(navigator.ExpandAll{Groups: groups})
	}
	return s
}
