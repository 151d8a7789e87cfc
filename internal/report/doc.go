// Package report renders interaction forests for terminals and machines:
// an indented tree, the maximum-duration path, a multi-file summary table,
// diagnostics, and a JSON document.
package report
