// Package trace records what the numstamp tools are doing while they run.
//
// The checker and the command line tools emit span and point events through
// a Tracer. Tracing is off by default and costs one interface call per span
// when disabled.
//
// # Usage
//
//	numstamp check --trace=- --trace-level=detail
//
// # Tracers
//
//   - Nop: discards everything
//   - StreamTracer: writes each event as it arrives
//   - RingTracer: keeps the last N events for a dump after a failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// ScopeRun covers a whole command, ScopeOp one checker job (an operator at a
// width) and ScopeCase a single stamp or sample inside a job. LevelPhase
// emits run events, LevelDetail adds op events and LevelDebug emits
// everything.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeOp, "add/i32", parent)
//	defer span.End("")
package trace
