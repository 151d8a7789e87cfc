// Package hierarchy rebuilds nested activities from a flat, ordered stream of
// begin/end records.
package hierarchy

import (
	"time"
)

// NodeKind distinguishes reconstructed activities from synthetic interaction roots.
type NodeKind uint8

const (
	KindActivity NodeKind = iota
	KindInteraction
)

// String returns the string representation of NodeKind.
func (k NodeKind) String() string {
	if k == KindInteraction {
		return "interaction"
	}
	return "activity"
}

// MarshalText encodes the kind by name.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *NodeKind) UnmarshalText(b []byte) error {
	if string(b) == "interaction" {
		*k = KindInteraction
	} else {
		*k = KindActivity
	}
	return nil
}

// Node is one unit of work. A node is open until its matching end record
// arrives; open nodes carry no duration.
type Node struct {
	Kind          NodeKind `json:"kind" msgpack:"kind"`
	Name          string   `json:"name" msgpack:"name"`
	Interaction   string   `json:"interaction" msgpack:"interaction"`
	StartSequence string   `json:"startSequence" msgpack:"start_seq"`
	EndSequence   string   `json:"endSequence,omitempty" msgpack:"end_seq"`

	// Start and End are seconds relative to the trace origin.
	Start float64 `json:"startTime" msgpack:"start"`
	End   float64 `json:"endTime,omitempty" msgpack:"end"`
	// StartAt and EndAt are absolute instants, zero when the timestamp was unparseable.
	StartAt time.Time `json:"startAt,omitzero" msgpack:"start_at"`
	EndAt   time.Time `json:"endAt,omitzero" msgpack:"end_at"`

	Duration float64 `json:"duration" msgpack:"duration"`
	Open     bool    `json:"open,omitempty" msgpack:"open"`

	StepMethod  string `json:"stepMethod,omitempty" msgpack:"step_method"`
	EventType   string `json:"eventType,omitempty" msgpack:"event_type"`
	RawDateTime string `json:"rawDateTime,omitempty" msgpack:"raw_datetime"`

	Children []*Node `json:"children,omitempty" msgpack:"children"`
}

// InteractionKeyPrefix prefixes the identity of interaction roots.
const InteractionKeyPrefix = "interaction:"

// Key is the node's identity for expansion state. Activities use their start
// sequence; interaction roots use their interaction id so a root never shares
// identity with its first child.
func (n *Node) Key() string {
	if n.Kind == KindInteraction {
		return InteractionKeyPrefix + n.Interaction
	}
	return n.StartSequence
}

// Seconds is the duration used for comparisons and ratios: 0 while open.
func (n *Node) Seconds() float64 {
	if n == nil || n.Open {
		return 0
	}
	return n.Duration
}

// HasChildren reports whether n has nested nodes.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func Walk(n *Node, depth int, fn func(n *Node, depth int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		Walk(c, depth+1, fn)
	}
}

// Find returns the first node in groups whose Key equals key.
func Find(groups []*Node, key string) *Node {
	var found *Node
	for _, g := range groups {
		Walk(g, 0, func(n *Node, _ int) bool {
			if found != nil {
				return false
			}
			if n.Key() == key {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}
