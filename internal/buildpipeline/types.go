package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLibraries copies library files into the output tree.
	StageLibraries Stage = "libraries"
	// StageSources registers sources that are compiled in place.
	StageSources Stage = "sources"
	// StageLint reports attached lint results. It runs alongside compile and
	// is only announced when lint results were supplied.
	StageLint Stage = "lint"
	// StageCompile runs the external compiler per file.
	StageCompile Stage = "compile"
	// StageReport flushes compile diagnostics alongside the map rewrite.
	StageReport Stage = "report"
	// StageMaps rewrites emitted source maps.
	StageMaps Stage = "maps"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusCached indicates the output was restored from the compile cache.
	StatusCached Status = "cached"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the overall pipeline when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
