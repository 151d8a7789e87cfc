package hierarchy

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"fortio.org/safecast"

	"tracetree/internal/diag"
	"tracetree/internal/event"
)

// Options tunes Build. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Diagnostics receives non-fatal findings; a fresh bag is created when nil.
	Diagnostics *diag.Bag
	// Normalize is forwarded to event.Normalize by Build.
	Normalize event.Options
}

// Stats summarises one build pass.
type Stats struct {
	Events        int `json:"events" msgpack:"events"`
	Begins        int `json:"begins" msgpack:"begins"`
	Ends          int `json:"ends" msgpack:"ends"`
	Ignored       int `json:"ignored" msgpack:"ignored"`
	Other         int `json:"other" msgpack:"other"`
	Matched       int `json:"matched" msgpack:"matched"`
	DiscardedEnds int `json:"discardedEnds" msgpack:"discarded_ends"`
	OpenAtEOF     int `json:"openAtEof" msgpack:"open_at_eof"`
	MaxDepth      int `json:"maxDepth" msgpack:"max_depth"`
	Groups        int `json:"groups" msgpack:"groups"`
}

// Result is the output of a build pass.
type Result struct {
	// Groups are the interaction roots sorted ascending by start time.
	Groups      []*Node
	Stats       Stats
	Diagnostics *diag.Bag
}

// Build normalizes raws and reconstructs the interaction forest.
func Build(raws []event.Raw, opts Options) *Result {
	opts = opts.withDefaults()
	nopts := opts.Normalize
	if nopts.Logger == nil {
		nopts.Logger = opts.Logger
	}
	if nopts.Reporter == nil {
		nopts.Reporter = diag.BagReporter{Bag: opts.Diagnostics}
	}
	return BuildNormalized(event.Normalize(raws, nopts), opts)
}

// BuildNormalized runs the stack machine over already normalized records.
func BuildNormalized(events []event.Normalized, opts Options) *Result {
	opts = opts.withDefaults()
	b := &builder{
		groups: make(map[string]nodeID),
		log:    opts.Logger,
		rep:    diag.BagReporter{Bag: opts.Diagnostics},
	}
	for i := range events {
		b.step(&events[i])
	}
	b.finish()
	groups := b.materialize()
	return &Result{
		Groups:      groups,
		Stats:       b.stats,
		Diagnostics: opts.Diagnostics,
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Diagnostics == nil {
		o.Diagnostics = diag.NewBag(diag.DefaultCap)
	}
	return o
}

// nodeID is a handle into the builder's arena.
type nodeID uint32

type builder struct {
	nodes  []Node
	kids   [][]nodeID
	stack  []nodeID
	groups map[string]nodeID
	order  []nodeID // interaction roots in creation order
	stats  Stats
	log    *slog.Logger
	rep    diag.Reporter
}

func (b *builder) alloc(n Node) nodeID {
	id, err := safecast.Conv[uint32](len(b.nodes))
	if err != nil {
		panic(fmt.Errorf("node arena overflow: %w", err))
	}
	b.nodes = append(b.nodes, n)
	b.kids = append(b.kids, nil)
	return nodeID(id)
}

func (b *builder) step(e *event.Normalized) {
	b.stats.Events++
	switch e.Kind {
	case event.KindBegin:
		b.stats.Begins++
		b.begin(e)
	case event.KindEnd:
		b.stats.Ends++
		b.end(e)
	case event.KindIgnored:
		b.stats.Ignored++
	default:
		b.stats.Other++
	}
}

func (b *builder) begin(e *event.Normalized) {
	id := b.alloc(Node{
		Kind:          KindActivity,
		Name:          e.Base,
		Interaction:   e.Interaction,
		StartSequence: e.Sequence,
		Start:         e.Relative,
		StartAt:       e.At,
		Open:          true,
		StepMethod:    e.StepMethod,
		EventType:     e.EventType,
		RawDateTime:   e.DateTime,
	})
	parent, ok := b.top()
	if !ok {
		parent = b.group(e)
	}
	b.kids[parent] = append(b.kids[parent], id)
	b.stack = append(b.stack, id)
	if d := len(b.stack); d > b.stats.MaxDepth {
		b.stats.MaxDepth = d
	}
}

// group returns the root for e's interaction, creating it on first use.
func (b *builder) group(e *event.Normalized) nodeID {
	if id, ok := b.groups[e.Interaction]; ok {
		return id
	}
	id := b.alloc(Node{
		Kind:          KindInteraction,
		Name:          "Interaction " + e.Interaction,
		Interaction:   e.Interaction,
		StartSequence: e.Sequence,
		Start:         e.Relative,
		StartAt:       e.At,
		Open:          true,
		RawDateTime:   e.DateTime,
	})
	b.groups[e.Interaction] = id
	b.order = append(b.order, id)
	return id
}

func (b *builder) end(e *event.Normalized) {
	id, ok := b.top()
	if !ok || b.nodes[id].Name != e.Base {
		b.stats.DiscardedEnds++
		open := "<empty stack>"
		if ok {
			open = b.nodes[id].Name
		}
		b.log.Debug("discarding unmatched end event",
			slog.String("sequence", e.Sequence),
			slog.String("name", e.Base),
			slog.String("open", open))
		b.rep.Report(diag.TraceDiscardedEnd, diag.SevWarning, e.Sequence, e.Base,
			fmt.Sprintf("end of %q does not match open activity %s", e.Base, open))
		return
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.stats.Matched++

	n := &b.nodes[id]
	b.close(n, e)
	if len(b.stack) > 0 {
		return
	}
	if gid, ok := b.groups[n.Interaction]; ok {
		b.close(&b.nodes[gid], e)
	}
}

func (b *builder) close(n *Node, e *event.Normalized) {
	n.Open = false
	n.End = e.Relative
	n.EndAt = e.At
	n.EndSequence = e.Sequence
	n.Duration = n.End - n.Start
	if n.Duration < 0 {
		b.rep.Report(diag.TraceNegativeDuration, diag.SevWarning, e.Sequence, n.Name,
			fmt.Sprintf("%q ends %.3fs before it begins; duration clamped to 0", n.Name, -n.Duration))
		n.Duration = 0
	}
}

func (b *builder) top() (nodeID, bool) {
	if len(b.stack) == 0 {
		return 0, false
	}
	return b.stack[len(b.stack)-1], true
}

// finish reports nodes that never closed; they stay open in the output.
func (b *builder) finish() {
	for i := len(b.stack) - 1; i >= 0; i-- {
		n := &b.nodes[b.stack[i]]
		b.stats.OpenAtEOF++
		b.rep.Report(diag.TraceOpenAtEOF, diag.SevInfo, n.StartSequence, n.Name,
			fmt.Sprintf("%q has no matching end event", n.Name))
	}
	b.stack = nil
}

// materialize turns the arena into an owned tree and orders the roots.
func (b *builder) materialize() []*Node {
	ptrs := make([]*Node, len(b.nodes))
	for i := range b.nodes {
		n := b.nodes[i]
		ptrs[i] = &n
	}
	for i, kids := range b.kids {
		if len(kids) == 0 {
			continue
		}
		children := make([]*Node, len(kids))
		for j, k := range kids {
			children[j] = ptrs[k]
		}
		ptrs[i].Children = children
	}
	groups := make([]*Node, len(b.order))
	for i, id := range b.order {
		groups[i] = ptrs[id]
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Start < groups[j].Start
	})
	b.stats.Groups = len(groups)
	return groups
}
