// Package metrics derives relative-significance figures from a built forest.
// Every function is pure; ratios over an empty or zero total are 0.
package metrics

import "tracetree/internal/hierarchy"

// Sum adds the durations of nodes; open nodes count as 0.
func Sum(nodes []*hierarchy.Node) float64 {
	var total float64
	for _, n := range nodes {
		total += n.Seconds()
	}
	return total
}

// RootTotal is the summed duration of all interaction roots.
func RootTotal(groups []*hierarchy.Node) float64 {
	return Sum(groups)
}

// ParentTotal is the denominator for a sibling group: the parent's duration
// when the parent is closed with a positive duration, otherwise the summed
// durations of the siblings. Interaction roots have no parent.
func ParentTotal(parent *hierarchy.Node, siblings []*hierarchy.Node) float64 {
	if d := parent.Seconds(); d > 0 {
		return d
	}
	return Sum(siblings)
}

// PercentageOfParent is node's share of ParentTotal(parent, siblings).
// Pass a nil parent for interaction roots.
func PercentageOfParent(node, parent *hierarchy.Node, siblings []*hierarchy.Node) float64 {
	return percent(node.Seconds(), ParentTotal(parent, siblings))
}

// PercentageOfTotal is node's share of rootTotal.
func PercentageOfTotal(node *hierarchy.Node, rootTotal float64) float64 {
	return percent(node.Seconds(), rootTotal)
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * part / whole
}

// Figures bundles the numbers a renderer shows next to a node.
type Figures struct {
	Duration float64 `json:"duration"`
	Open     bool    `json:"open,omitempty"`
	OfParent float64 `json:"ofParent"`
	OfTotal  float64 `json:"ofTotal"`
	Bucket   Bucket  `json:"bucket"`
}

// Compute returns the figures for node under parent. The bucket follows the
// percentage of parent, which is what drives visibility.
func Compute(node, parent *hierarchy.Node, siblings []*hierarchy.Node, rootTotal float64) Figures {
	ofParent := PercentageOfParent(node, parent, siblings)
	return Figures{
		Duration: node.Seconds(),
		Open:     node.Open,
		OfParent: ofParent,
		OfTotal:  PercentageOfTotal(node, rootTotal),
		Bucket:   BucketOf(ofParent),
	}
}
