package report

import (
	"fmt"
	"io"
	"sort"

	"tracetree/internal/diag"
)

// Diagnostics prints the bag's kept records, most severe first, followed by
// a count of records dropped by the bag's cap.
func Diagnostics(w io.Writer, bag *diag.Bag, opts Options) error {
	if bag == nil || bag.Total() == 0 {
		return nil
	}
	p := palette{on: opts.Color}
	items := append([]diag.Diagnostic(nil), bag.Items()...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Severity != items[j].Severity {
			return items[i].Severity > items[j].Severity
		}
		return items[i].Code < items[j].Code
	})
	for _, d := range items {
		line := p.severity(fmt.Sprintf("%-7s %s", d.Severity, d.Code.ID()), d.Severity)
		if d.Sequence != "" {
			line += " #" + d.Sequence
		}
		if d.Name != "" {
			line += " " + d.Name
		}
		line += ": " + d.Message
		if _, err := fmt.Fprintln(w, opts.fit(line)); err != nil {
			return err
		}
	}
	if dropped := bag.Total() - bag.Len(); dropped > 0 {
		if _, err := fmt.Fprintf(w, "... and %d more\n", dropped); err != nil {
			return err
		}
	}
	return nil
}
