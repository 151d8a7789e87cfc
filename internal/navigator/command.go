package navigator

import "tracetree/internal/hierarchy"

// Command transforms a ViewState.
type Command interface {
	apply(ViewState) ViewState
}

// Toggle flips the expansion of one identity.
type Toggle struct{ Key string }

func (c Toggle) apply(s ViewState) ViewState {
	return s.withExpanded(func(set map[string]struct{}) {
		if _, ok := set[c.Key]; ok {
			delete(set, c.Key)
		} else {
			set[c.Key] = struct{}{}
		}
	})
}

// Expand adds identities to the expanded set.
type Expand struct{ Keys []string }

func (c Expand) apply(s ViewState) ViewState {
	return s.withExpanded(func(set map[string]struct{}) {
		for _, k := range c.Keys {
			set[k] = struct{}{}
		}
	})
}

// ExpandTopPath replaces the expanded set with the max-duration path of Groups.
type ExpandTopPath struct{ Groups []*hierarchy.Node }

func (c ExpandTopPath) apply(s ViewState) ViewState {
	s.expanded = ExpandMaxDurationPath(c.Groups)
	return s
}

// ExpandAll expands every node that has children.
type ExpandAll struct{ Groups []*hierarchy.Node }

func (c ExpandAll) apply(s ViewState) ViewState {
	set := make(map[string]struct{})
	for _, g := range c.Groups {
		hierarchy.Walk(g, 0, func(n *hierarchy.Node, _ int) bool {
			if n.HasChildren() {
				set[n.Key()] = struct{}{}
			}
			return true
		})
	}
	s.expanded = set
	return s
}

// CollapseAll empties the expanded set.
type CollapseAll struct{}

func (CollapseAll) apply(s ViewState) ViewState {
	s.expanded = nil
	return s
}

// SetHideMinor turns minor-node hiding on or off.
type SetHideMinor struct{ On bool }

func (c SetHideMinor) apply(s ViewState) ViewState {
	s.hideMinor = c.On
	return s
}

// ToggleHideMinor flips minor-node hiding.
type ToggleHideMinor struct{}

func (ToggleHideMinor) apply(s ViewState) ViewState {
	s.hideMinor = !s.hideMinor
	return s
}

// SetThreshold sets the threshold, clamped to [0, 100].
type SetThreshold struct{ Value float64 }

func (c SetThreshold) apply(s ViewState) ViewState {
	s.threshold = ClampThreshold(c.Value)
	return s
}

// AdjustThreshold moves the threshold by Delta, clamped to [0, 100].
type AdjustThreshold struct{ Delta float64 }

func (c AdjustThreshold) apply(s ViewState) ViewState {
	s.threshold = ClampThreshold(s.threshold + c.Delta)
	return s
}
