package navigator

import (
	"tracetree/internal/hierarchy"
	"tracetree/internal/metrics"
)

// IsMinor reports whether node falls below threshold within its sibling group.
func IsMinor(node, parent *hierarchy.Node, siblings []*hierarchy.Node, threshold float64) bool {
	return metrics.PercentageOfParent(node, parent, siblings) < threshold
}

// Row is one visible line of a view.
type Row struct {
	Node    *hierarchy.Node
	Parent  *hierarchy.Node
	Depth   int
	Figures metrics.Figures
	// Expanded is true when the node's children follow it in the view.
	Expanded bool
	// MaxSibling marks the longest node among its siblings.
	MaxSibling bool
	Minor      bool
	// HiddenChildren counts children omitted as minor; set only when expanded.
	HiddenChildren int
}

// View is the flattened, filtered rendering input for a forest.
type View struct {
	Rows        []Row
	RootTotal   float64
	HiddenRoots int
}

// Render flattens groups into rows according to s. Minor nodes and their
// subtrees are skipped when s.HideMinor() is set; the data is untouched.
func Render(groups []*hierarchy.Node, s ViewState) View {
	v := View{RootTotal: metrics.RootTotal(groups)}
	v.HiddenRoots = v.appendLevel(nil, groups, 0, s)
	return v
}

// appendLevel adds visible rows for siblings and returns how many were hidden.
func (v *View) appendLevel(parent *hierarchy.Node, siblings []*hierarchy.Node, depth int, s ViewState) int {
	maxIdx := MaxIndex(siblings)
	hidden := 0
	for i, n := range siblings {
		fig := metrics.Compute(n, parent, siblings, v.RootTotal)
		minor := fig.OfParent < s.threshold
		if minor && s.hideMinor {
			hidden++
			continue
		}
		expanded := n.HasChildren() && s.IsExpanded(n.Key())
		v.Rows = append(v.Rows, Row{
			Node:       n,
			Parent:     parent,
			Depth:      depth,
			Figures:    fig,
			Expanded:   expanded,
			MaxSibling: i == maxIdx,
			Minor:      minor,
		})
		if expanded {
			at := len(v.Rows) - 1
			hiddenKids := v.appendLevel(n, n.Children, depth+1, s)
			v.Rows[at].HiddenChildren = hiddenKids
		}
	}
	return hidden
}

// CountMinor returns how many of siblings fall below threshold.
func CountMinor(parent *hierarchy.Node, siblings []*hierarchy.Node, threshold float64) int {
	n := 0
	for _, c := range siblings {
		if IsMinor(c, parent, siblings, threshold) {
			n++
		}
	}
	return n
}
