package diag

import "sort"

// DefaultCap bounds how many detailed records a bag keeps by default.
const DefaultCap = 256

type Bag struct {
	items  []Diagnostic
	max    int
	counts map[Code]int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = DefaultCap
	}
	return &Bag{
		items:  make([]Diagnostic, 0, min(max, 16)),
		max:    max,
		counts: make(map[Code]int),
	}
}

// Add records d. The per-code count always increases; the record itself is
// kept only while the bag is under its cap. Reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	b.counts[d.Code]++
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any kept diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any kept diagnostic has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Total is the number of reports, including those dropped by the cap.
func (b *Bag) Total() int {
	n := 0
	for _, c := range b.counts {
		n += c
	}
	return n
}

// Count returns how many diagnostics with code were reported.
func (b *Bag) Count(code Code) int {
	return b.counts[code]
}

// Counts returns a copy of the per-code tallies.
func (b *Bag) Counts() map[Code]int {
	out := make(map[Code]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// Items returns the kept diagnostics. Do not modify the returned slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends other's records and counts, growing the cap when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
	for k, v := range other.counts {
		b.counts[k] += v
	}
}

// Sort orders by severity (desc), then code, keeping report order within ties.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Snapshot is a serializable copy of a bag.
type Snapshot struct {
	Cap    int          `json:"cap" msgpack:"cap"`
	Items  []Diagnostic `json:"items" msgpack:"items"`
	Counts map[Code]int `json:"counts" msgpack:"counts"`
}

func (b *Bag) Snapshot() Snapshot {
	items := make([]Diagnostic, len(b.items))
	copy(items, b.items)
	return Snapshot{Cap: b.max, Items: items, Counts: b.Counts()}
}

// FromSnapshot rebuilds a bag, keeping at most the snapshot's cap of items.
func FromSnapshot(s Snapshot) *Bag {
	b := NewBag(s.Cap)
	n := min(len(s.Items), b.max)
	b.items = append(b.items, s.Items[:n]...)
	for k, v := range s.Counts {
		b.counts[k] = v
	}
	return b
}
