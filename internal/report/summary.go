package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"tracetree/internal/hierarchy"
	"tracetree/internal/instant"
	"tracetree/internal/metrics"
)

// SummaryLine is one input of a multi-file summary.
type SummaryLine struct {
	Name      string
	Groups    []*hierarchy.Node
	Stats     hierarchy.Stats
	LastEvent time.Time
	Cached    bool
	Err       error
}

var summaryHeader = []string{"TRACE", "GROUPS", "EVENTS", "MATCHED", "DISCARDED", "OPEN", "TOTAL", "LAST EVENT"}

// Summary prints an aligned table with one row per line.
func Summary(w io.Writer, lines []SummaryLine, opts Options) error {
	p := palette{on: opts.Color}
	cells := make([][]string, 0, len(lines)+1)
	cells = append(cells, summaryHeader)
	for _, l := range lines {
		name := l.Name
		if l.Cached {
			name += " (cached)"
		}
		if l.Err != nil {
			cells = append(cells, []string{name, "-", "-", "-", "-", "-", "-", "error: " + l.Err.Error()})
			continue
		}
		cells = append(cells, []string{
			name,
			fmt.Sprint(l.Stats.Groups),
			fmt.Sprint(l.Stats.Events),
			fmt.Sprint(l.Stats.Matched),
			fmt.Sprint(l.Stats.DiscardedEnds),
			fmt.Sprint(l.Stats.OpenAtEOF),
			fmt.Sprintf("%.3fs", metrics.RootTotal(l.Groups)),
			instant.Format(l.LastEvent),
		})
	}

	widths := make([]int, len(summaryHeader))
	for _, row := range cells {
		for i, c := range row[:len(row)-1] {
			widths[i] = max(widths[i], len([]rune(c)))
		}
	}
	for r, row := range cells {
		var sb strings.Builder
		for i, c := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(c)
				continue
			}
			sb.WriteString(pad(c, widths[i], i > 0))
		}
		line := strings.TrimRight(sb.String(), " ")
		switch {
		case r == 0:
			line = p.paint(line, color.Bold)
		case lines[r-1].Err != nil:
			line = p.paint(line, color.FgRed)
		}
		if _, err := fmt.Fprintln(w, opts.fit(line)); err != nil {
			return err
		}
	}
	return nil
}
