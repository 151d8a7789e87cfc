package report

import (
	"fmt"
	"strings"

	"tracetree/internal/hierarchy"
	"tracetree/internal/metrics"
)

// UnnamedActivity stands in for an empty node name.
const UnnamedActivity = "Unknown Activity"

// Name is the node's display name.
func Name(n *hierarchy.Node) string {
	if n.Name == "" {
		return UnnamedActivity
	}
	return n.Name
}

// Sequences renders " (#start→end)" with "?" for a missing end, or "" when
// the node carries neither sequence.
func Sequences(n *hierarchy.Node) string {
	if n.StartSequence == "" && n.EndSequence == "" {
		return ""
	}
	end := n.EndSequence
	if end == "" {
		end = "?"
	}
	return fmt.Sprintf(" (#%s→%s)", n.StartSequence, end)
}

// Timing renders " (1.234s - 40.0% of parent | 12.5% of total)". Percentages
// are omitted for zero durations and the whole part is " (open)" for nodes
// that never closed.
func Timing(f metrics.Figures) string {
	if f.Open {
		return " (open)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, " (%.3fs", f.Duration)
	if f.Duration > 0 {
		fmt.Fprintf(&sb, " - %.1f%% of parent | %.1f%% of total", f.OfParent, f.OfTotal)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Label is the uncoloured single-line description of a node.
func Label(n *hierarchy.Node, f metrics.Figures) string {
	return Name(n) + Sequences(n) + Timing(f)
}

// HiddenMinorNotice is shown under an expanded node whose minor children are hidden.
func HiddenMinorNotice(n int) string {
	return fmt.Sprintf("%d minor event%s hidden", n, plural(n))
}

// HiddenRootsNotice is shown above the forest when root-level groups are hidden.
func HiddenRootsNotice(n int) string {
	return fmt.Sprintf("%d root-level event%s hidden", n, plural(n))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
