// Package diag defines the diagnostic model shared by the loading and
// building phases.
//
// # Purpose
//
//   - Record non-fatal findings about a trace (discarded end events,
//     unparseable timestamps, nodes left open) without aborting the build.
//   - Offer light-weight utilities (Reporter, Bag) so producers can emit
//     diagnostics without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short.
//   - Sequence / Name – the trace event the finding refers to, if any.
//
// A Bag keeps at most its capacity of records but counts every report per
// code, so callers can always ask how many events of a kind were seen even
// when the detailed list was truncated.
package diag
