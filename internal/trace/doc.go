// Package trace records what the build pipeline is doing so slow or stuck
// runs can be diagnosed.
//
//	rewind build --trace=build.ndjson --trace-level=detail
//
// Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "compile")
//	defer span.End("")
//
// ScopeDriver covers a CLI command, ScopePass a pipeline stage, ScopeFile the
// work for one source file and ScopeProcess an external compiler process.
// LevelPhase records driver and pass events, LevelDetail adds files and
// LevelDebug adds processes. LevelError keeps file-level events in memory
// only; they are printed when a build fails.
package trace
