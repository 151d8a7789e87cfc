// Package navigator decides what part of a forest is shown: which nodes are
// expanded, which are hidden as insignificant, and which path the guided
// expansion follows. A ViewState is never modified in place; commands return
// a new state.
package navigator

import (
	"sort"
)

// DefaultThreshold is the significance threshold in percent used by NewViewState.
const DefaultThreshold = 3.0

// ViewState is the immutable display state threaded through navigator calls.
type ViewState struct {
	hideMinor bool
	threshold float64
	expanded  map[string]struct{}
}

// NewViewState returns a state with nothing expanded, minor nodes shown and
// the default threshold.
func NewViewState() ViewState {
	return ViewState{threshold: DefaultThreshold}
}

// HideMinor reports whether minor nodes are omitted from views.
func (s ViewState) HideMinor() bool { return s.hideMinor }

// Threshold is the significance threshold in percent, within [0, 100].
func (s ViewState) Threshold() float64 { return s.threshold }

// IsExpanded reports whether the node with identity key is expanded.
func (s ViewState) IsExpanded(key string) bool {
	_, ok := s.expanded[key]
	return ok
}

// ExpandedCount is the number of expanded identities.
func (s ViewState) ExpandedCount() int { return len(s.expanded) }

// Expanded returns the expanded identities in sorted order.
func (s ViewState) Expanded() []string {
	keys := make([]string, 0, len(s.expanded))
	for k := range s.expanded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply runs cmds in order and returns the resulting state.
func (s ViewState) Apply(cmds ...Command) ViewState {
	for _, c := range cmds {
		if c != nil {
			s = c.apply(s)
		}
	}
	return s
}

// withExpanded returns a copy of s whose expanded set is edit(copy of current set).
func (s ViewState) withExpanded(edit func(set map[string]struct{})) ViewState {
	next := make(map[string]struct{}, len(s.expanded)+1)
	for k := range s.expanded {
		next[k] = struct{}{}
	}
	edit(next)
	s.expanded = next
	return s
}

// ClampThreshold bounds v to [0, 100].
func ClampThreshold(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
