// Package trace records the tool's own execution as spans so slow or stuck
// runs can be diagnosed.
//
// Enable it from the command line:
//
//	tracetree tree --trace=- --trace-level=stage export.xml
//
// Output paths ending in .ndjson are written as newline-delimited JSON,
// everything else as indented text. A ring buffer keeps the most recent
// events so they can be dumped when a command fails.
//
// Levels, from quietest to loudest: off, error, stage, file, debug.
// Scopes: command (one per CLI invocation), stage (load, normalize, build,
// measure), file (one per input in batch mode).
//
// Tracers travel through the pipeline on the context:
//
//	ctx = trace.WithTracer(ctx, t)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "build", parent)
//	defer span.End("")
package trace
