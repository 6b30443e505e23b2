// Package buildpipeline compiles project files with an external compiler and
// reports every diagnostic and source map against original source paths.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rewind/internal/artifact"
	"rewind/internal/diag"
	"rewind/internal/observ"
	"rewind/internal/pathtrack"
	"rewind/internal/sourcemap"
	"rewind/internal/trace"
)

// BuildRequest configures one pipeline run.
type BuildRequest struct {
	Libraries []Input
	Sources   []Input

	OutputRoot  string
	ScratchRoot string
	Command     string
	Args        []string
	Invoker     Invoker
	Jobs        int
	KeepTmp     bool
	KeepMapFile bool
	Cache       *Cache

	// LintResults maps cleaned absolute paths of original files to findings.
	LintResults map[string]*artifact.LintReport

	Report   diag.Report
	Output   io.Writer // reports are written here
	Progress ProgressSink
}

// BuildResult captures artefacts, diagnostics and timings.
type BuildResult struct {
	Artifacts   []*artifact.Artifact
	Diagnostics *diag.Bag
	Failures    int
	LintIssues  int
	MapErrors   []error
	Phases      observ.Report
	Registry    *pathtrack.Registry
}

// Scripts returns the compiled script artifacts.
func (r BuildResult) Scripts() []*artifact.Artifact {
	var out []*artifact.Artifact
	for _, a := range r.Artifacts {
		if a.Kind == artifact.KindScript {
			out = append(out, a)
		}
	}
	return out
}

// Build stages libraries and sources, compiles them, then reports failures and
// rewrites maps. Reporters and the map rewriter only run once every stage that
// records paths has drained.
func Build(ctx context.Context, req *BuildRequest) (result BuildResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.OutputRoot == "" {
		return result, fmt.Errorf("missing output root")
	}
	if req.Command == "" {
		return result, fmt.Errorf("missing compiler command")
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "build")
	defer span.End("")

	reg := pathtrack.NewRegistry()
	bag := diag.NewBag(0)
	timer := observ.NewTimer()
	result.Registry = reg
	result.Diagnostics = bag
	defer func() { result.Phases = timer.Report() }()

	if err := os.MkdirAll(req.OutputRoot, 0o750); err != nil {
		return result, fmt.Errorf("failed to create output dir: %w", err)
	}

	// libraries and sources
	end := timer.Begin(string(StageLibraries))
	emitStage(req.Progress, StageLibraries, StatusWorking, nil, 0)
	libs, err := CopyLibraries(ctx, req.Libraries, req.OutputRoot, reg.Create(string(StageLibraries)))
	elapsed := end(fmt.Sprintf("%d files", len(libs)))
	if err != nil {
		emitStage(req.Progress, StageLibraries, StatusError, err, 0)
		return result, err
	}
	emitStage(req.Progress, StageLibraries, StatusDone, nil, elapsed)

	end = timer.Begin(string(StageSources))
	srcs, err := DefineSources(ctx, req.Sources, reg.Create(string(StageSources)))
	end(fmt.Sprintf("%d files", len(srcs)))
	if err != nil {
		emitStage(req.Progress, StageSources, StatusError, err, 0)
		return result, err
	}

	inputs := append(libs, srcs...)
	attachLint(inputs, req.LintResults)
	emitQueued(req.Progress, compileLabels(inputs))

	// compile records into its own session while lint findings are being
	// reported, so lint only reads the sessions that are already complete
	lintPaths := reg.Select(string(StageLibraries), string(StageSources))
	lint := &diag.LintReporter{Paths: lintPaths, Report: req.Report, Out: req.Output, Sink: diag.BagReporter{Bag: bag}}
	compile := &CompileStage{
		OutputRoot:  req.OutputRoot,
		ScratchRoot: req.ScratchRoot,
		Command:     req.Command,
		Args:        req.Args,
		Invoker:     req.Invoker,
		Session:     reg.Create(string(StageCompile)),
		Jobs:        req.Jobs,
		KeepTmp:     req.KeepTmp,
		Cache:       req.Cache,
		Progress:    req.Progress,
	}

	linting := len(req.LintResults) > 0
	if linting {
		emitStage(req.Progress, StageLint, StatusWorking, nil, 0)
	}
	end = timer.Begin(string(StageCompile))
	emitStage(req.Progress, StageCompile, StatusWorking, nil, 0)
	compiled, err := artifact.Chain(ctx, inputs, lint.Stage(), compile.Stage())
	elapsed = end(fmt.Sprintf("%d artifacts", len(compiled)))
	result.LintIssues = lint.Findings()
	if err != nil {
		if linting {
			emitStage(req.Progress, StageLint, StatusError, err, 0)
		}
		emitStage(req.Progress, StageCompile, StatusError, err, 0)
		return result, err
	}
	if linting {
		emitStage(req.Progress, StageLint, StatusDone, nil, elapsed)
	}
	emitStage(req.Progress, StageCompile, StatusDone, nil, elapsed)

	// every recording stage has drained; readers may start
	if err := reg.Validate(); err != nil {
		return result, err
	}
	if !req.KeepTmp {
		cleanScratch(req)
	}

	reporter := &diag.CompileReporter{Paths: reg, Report: req.Report, Out: req.Output, Sink: diag.BagReporter{Bag: bag}}
	maps := &sourcemap.Rewriter{Paths: reg, KeepFile: req.KeepMapFile}

	end = timer.Begin(string(StageMaps))
	emitStage(req.Progress, StageReport, StatusWorking, nil, 0)
	emitStage(req.Progress, StageMaps, StatusWorking, nil, 0)
	final, err := artifact.Chain(ctx, compiled, reporter.Stage(), maps.Stage(), writeMaps())
	elapsed = end(fmt.Sprintf("%d artifacts", len(final)))
	result.Artifacts = final
	result.Failures = reporter.Failures()
	result.MapErrors = maps.Errors()
	if err != nil {
		emitStage(req.Progress, StageReport, StatusError, err, 0)
		emitStage(req.Progress, StageMaps, StatusError, err, 0)
		return result, err
	}
	emitStage(req.Progress, StageReport, StatusDone, nil, elapsed)
	emitStage(req.Progress, StageMaps, StatusDone, nil, elapsed)

	if len(result.MapErrors) > 0 {
		return result, errors.Join(result.MapErrors...)
	}
	return result, nil
}

// writeMaps persists rewritten map documents to their output path.
func writeMaps() artifact.Stage {
	return artifact.PassThrough(func(a *artifact.Artifact) error {
		if a.Kind != artifact.KindMap {
			return nil
		}
		return writeFileAtomic(a.Path, a.Content)
	})
}

func attachLint(inputs []*artifact.Artifact, results map[string]*artifact.LintReport) {
	if len(results) == 0 {
		return
	}
	for _, a := range inputs {
		logical := filepath.Clean(a.Descriptor.LogicalPath)
		if rep, ok := results[logical]; ok {
			a.Lint = rep
			continue
		}
		if rep, ok := results[filepath.Clean(a.Path)]; ok {
			a.Lint = rep
		}
	}
}

func compileLabels(inputs []*artifact.Artifact) []string {
	labels := make([]string, 0, len(inputs))
	for _, a := range inputs {
		if a.Compile {
			labels = append(labels, a.Relative())
		}
	}
	return labels
}

func cleanScratch(req *BuildRequest) {
	scratch := req.ScratchRoot
	if scratch == "" {
		scratch = filepath.Join(req.OutputRoot, ".tmp")
	}
	_ = os.RemoveAll(scratch)
}
