package navigator

import "tracetree/internal/hierarchy"

// MaxIndex returns the index of the node with the greatest duration, the
// first one on ties, or -1 for an empty slice. Open nodes count as 0.
func MaxIndex(nodes []*hierarchy.Node) int {
	best := -1
	for i, n := range nodes {
		if best < 0 || n.Seconds() > nodes[best].Seconds() {
			best = i
		}
	}
	return best
}

// MaxDurationPath starts at the longest interaction root and repeatedly
// descends into the longest child until it reaches a leaf. It returns one
// node per depth level.
func MaxDurationPath(groups []*hierarchy.Node) []*hierarchy.Node {
	i := MaxIndex(groups)
	if i < 0 {
		return nil
	}
	path := []*hierarchy.Node{groups[i]}
	for cur := groups[i]; cur.HasChildren(); {
		cur = cur.Children[MaxIndex(cur.Children)]
		path = append(path, cur)
	}
	return path
}

// ExpandMaxDurationPath returns the identities along MaxDurationPath.
func ExpandMaxDurationPath(groups []*hierarchy.Node) map[string]struct{} {
	path := MaxDurationPath(groups)
	set := make(map[string]struct{}, len(path))
	for _, n := range path {
		set[n.Key()] = struct{}{}
	}
	return set
}
