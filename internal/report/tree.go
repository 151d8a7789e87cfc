package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"tracetree/internal/hierarchy"
	"tracetree/internal/navigator"
)

// Markers used in front of tree rows.
const (
	MarkExpanded  = "▼"
	MarkCollapsed = "▶"
	MarkLeaf      = " "
	MarkMax       = "*"
)

// Tree prints the rows of v. Hidden-minor notices appear only when the view
// hides minor nodes.
func Tree(w io.Writer, v navigator.View, hideMinor bool, opts Options) error {
	p := palette{on: opts.Color}
	if hideMinor && v.HiddenRoots > 0 {
		if _, err := fmt.Fprintln(w, opts.fit(p.paint(HiddenRootsNotice(v.HiddenRoots), color.Faint))); err != nil {
			return err
		}
	}
	for _, row := range v.Rows {
		if _, err := fmt.Fprintln(w, opts.fit(RowLine(row, opts))); err != nil {
			return err
		}
		if hideMinor && row.Expanded && row.HiddenChildren > 0 {
			notice := strings.Repeat(" ", (row.Depth+1)*opts.indent()) + "  " + HiddenMinorNotice(row.HiddenChildren)
			if _, err := fmt.Fprintln(w, opts.fit(p.paint(notice, color.Faint))); err != nil {
				return err
			}
		}
	}
	return nil
}

// RowLine renders one row with indentation, expansion marker and the
// max-sibling star.
func RowLine(row navigator.Row, opts Options) string {
	p := palette{on: opts.Color}
	mark := MarkLeaf
	switch {
	case row.Expanded:
		mark = MarkExpanded
	case row.Node.HasChildren():
		mark = MarkCollapsed
	}
	star := " "
	if row.MaxSibling {
		star = p.paint(MarkMax, color.FgMagenta, color.Bold)
	}
	name := Name(row.Node)
	if row.Node.Kind == hierarchy.KindInteraction {
		name = p.paint(name, color.Bold)
	}
	return strings.Repeat(" ", row.Depth*opts.indent()) + mark + star + name +
		p.paint(Sequences(row.Node), color.Faint) +
		p.bucket(Timing(row.Figures), row.Figures.Bucket)
}

// Path prints the maximum-duration path, one step per line.
func Path(w io.Writer, groups []*hierarchy.Node, opts Options) error {
	steps := PathRows(groups)
	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "no activities")
		return err
	}
	for _, row := range steps {
		if _, err := fmt.Fprintln(w, opts.fit(RowLine(row, opts))); err != nil {
			return err
		}
	}
	return nil
}

// PathRows returns the maximum-duration path as rows with figures relative
// to each step's actual parent and siblings.
func PathRows(groups []*hierarchy.Node) []navigator.Row {
	path := navigator.MaxDurationPath(groups)
	if len(path) == 0 {
		return nil
	}
	expanded := navigator.NewViewState().Apply(navigator.ExpandTopPath{Groups: groups}).Apply(navigator.SetThreshold{Value: 0})
	view := navigator.Render(groups, expanded)
	onPath := make(map[*hierarchy.Node]bool, len(path))
	for _, n := range path {
		onPath[n] = true
	}
	rows := make([]navigator.Row, 0, len(path))
	for _, r := range view.Rows {
		if onPath[r.Node] {
			rows = append(rows, r)
		}
	}
	return rows
}
