package report

import (
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tracetree/internal/diag"
	"tracetree/internal/metrics"
)

// Options configures terminal output.
type Options struct {
	Color bool
	// Width truncates lines to this many cells; 0 means unlimited.
	Width int
	// Indent is the number of spaces per depth level; 0 means 2.
	Indent int
}

func (o Options) indent() int {
	if o.Indent <= 0 {
		return 2
	}
	return o.Indent
}

func (o Options) fit(line string) string {
	return truncate(line, o.Width)
}

// palette applies colours only when enabled, independent of color.NoColor.
type palette struct{ on bool }

func (p palette) paint(s string, attrs ...color.Attribute) string {
	if !p.on || s == "" {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p palette) bucket(s string, b metrics.Bucket) string {
	switch b {
	case metrics.BucketHigh:
		return p.paint(s, color.FgRed, color.Bold)
	case metrics.BucketMedium:
		return p.paint(s, color.FgYellow)
	case metrics.BucketLow:
		return p.paint(s, color.FgGreen)
	default:
		return p.paint(s, color.Faint)
	}
}

func (p palette) severity(s string, sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return p.paint(s, color.FgRed, color.Bold)
	case diag.SevWarning:
		return p.paint(s, color.FgYellow, color.Bold)
	default:
		return p.paint(s, color.FgCyan)
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// pad right-aligns (right=true) or left-aligns s within width cells.
func pad(s string, width int, right bool) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}
