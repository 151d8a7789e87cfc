package report

import (
	"encoding/json"
	"io"
	"time"

	"tracetree/internal/diag"
	"tracetree/internal/hierarchy"
	"tracetree/internal/instant"
	"tracetree/internal/metrics"
	"tracetree/internal/navigator"
)

// Document is the JSON form of one analysed trace.
type Document struct {
	Name             string            `json:"name"`
	Origin           string            `json:"origin,omitempty"`
	LastEvent        string            `json:"lastEvent,omitempty"`
	RootTotal        float64           `json:"rootTotal"`
	Stats            hierarchy.Stats   `json:"stats"`
	Groups           []*hierarchy.Node `json:"groups"`
	MaxPath          []string          `json:"maxPath"`
	Diagnostics      []diag.Diagnostic `json:"diagnostics"`
	DiagnosticCounts map[diag.Code]int `json:"diagnosticCounts,omitempty"`
}

// NewDocument assembles a Document. bag may be nil.
func NewDocument(name string, groups []*hierarchy.Node, stats hierarchy.Stats, bag *diag.Bag, origin, last time.Time) Document {
	doc := Document{
		Name:        name,
		Origin:      instant.Format(origin),
		LastEvent:   instant.Format(last),
		RootTotal:   metrics.RootTotal(groups),
		Stats:       stats,
		Groups:      groups,
		MaxPath:     []string{},
		Diagnostics: []diag.Diagnostic{},
	}
	if doc.Groups == nil {
		doc.Groups = []*hierarchy.Node{}
	}
	for _, n := range navigator.MaxDurationPath(groups) {
		doc.MaxPath = append(doc.MaxPath, n.Key())
	}
	if bag != nil {
		doc.Diagnostics = append(doc.Diagnostics, bag.Items()...)
		doc.DiagnosticCounts = bag.Counts()
	}
	return doc
}

// RowJSON is one visible row of a view.
type RowJSON struct {
	Key            string          `json:"key"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Depth          int             `json:"depth"`
	StartSequence  string          `json:"startSequence,omitempty"`
	EndSequence    string          `json:"endSequence,omitempty"`
	Figures        metrics.Figures `json:"figures"`
	Label          string          `json:"label"`
	HasChildren    bool            `json:"hasChildren"`
	Expanded       bool            `json:"expanded"`
	MaxSibling     bool            `json:"maxSibling"`
	Minor          bool            `json:"minor"`
	HiddenChildren int             `json:"hiddenChildren,omitempty"`
}

// ViewJSON is the JSON form of a navigator view.
type ViewJSON struct {
	Threshold   float64   `json:"threshold"`
	HideMinor   bool      `json:"hideMinor"`
	Expanded    []string  `json:"expanded"`
	RootTotal   float64   `json:"rootTotal"`
	HiddenRoots int       `json:"hiddenRoots"`
	Rows        []RowJSON `json:"rows"`
}

// NewViewJSON converts a rendered view and the state that produced it.
func NewViewJSON(v navigator.View, s navigator.ViewState) ViewJSON {
	out := ViewJSON{
		Threshold:   s.Threshold(),
		HideMinor:   s.HideMinor(),
		Expanded:    s.Expanded(),
		RootTotal:   v.RootTotal,
		HiddenRoots: v.HiddenRoots,
		Rows:        make([]RowJSON, len(v.Rows)),
	}
	if out.Expanded == nil {
		out.Expanded = []string{}
	}
	for i, r := range v.Rows {
		out.Rows[i] = NewRowJSON(r)
	}
	return out
}

// NewRowJSON converts one rendered row.
func NewRowJSON(r navigator.Row) RowJSON {
	return RowJSON{
		Key:            r.Node.Key(),
		Name:           Name(r.Node),
		Kind:           r.Node.Kind.String(),
		Depth:          r.Depth,
		StartSequence:  r.Node.StartSequence,
		EndSequence:    r.Node.EndSequence,
		Figures:        r.Figures,
		Label:          Label(r.Node, r.Figures),
		HasChildren:    r.Node.HasChildren(),
		Expanded:       r.Expanded,
		MaxSibling:     r.MaxSibling,
		Minor:          r.Minor,
		HiddenChildren: r.HiddenChildren,
	}
}

// WriteJSON encodes v with two-space indentation.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
