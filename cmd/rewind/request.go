package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"rewind/internal/artifact"
	"rewind/internal/buildpipeline"
	"rewind/internal/diag"
	"rewind/internal/project"
)

// buildOptions are the command-line overrides for one build.
type buildOptions struct {
	jobs          int
	banner        int // negative keeps the manifest value
	lintResults   string
	diagJSON      string
	cache         *bool
	clearCache    bool
	keepTmp       bool
	keepMapFile   bool
	printCommands bool
	ui            toggle
	watch         bool
	quiet         bool
	timings       bool
}

// newBuildRequest turns a manifest and its overrides into a pipeline request.
// The returned labels name every file the compile stage will report on.
func newBuildRequest(m *project.Manifest, opts buildOptions, cache *buildpipeline.Cache, out io.Writer) (*buildpipeline.BuildRequest, []string, error) {
	libs, srcs, err := m.Inputs()
	if err != nil {
		return nil, nil, err
	}

	lintPath := opts.lintResults
	if lintPath == "" {
		lintPath = m.LintResults()
	}
	var lint map[string]*artifact.LintReport
	if lintPath != "" {
		if lint, err = diag.LoadLintResults(lintPath, m.Root); err != nil {
			return nil, nil, err
		}
	}

	jobs := m.Config.Build.Jobs
	if opts.jobs > 0 {
		jobs = opts.jobs
	}
	banner := m.Banner()
	if opts.banner >= 0 {
		banner = opts.banner
	}

	req := &buildpipeline.BuildRequest{
		Libraries:   toInputs(libs, m.Root),
		Sources:     toInputs(srcs, m.Root),
		OutputRoot:  m.OutputRoot(),
		ScratchRoot: m.ScratchRoot(),
		Command:     m.Config.Compiler.Command,
		Args:        m.Config.Compiler.Args,
		Invoker:     buildpipeline.ExecInvoker{PrintCommands: opts.printCommands, Log: os.Stderr},
		Jobs:        jobs,
		KeepTmp:     opts.keepTmp || m.Config.Build.KeepTmp,
		KeepMapFile: opts.keepMapFile || m.Config.Build.KeepMapFile,
		Cache:       cache,
		LintResults: lint,
		Report:      diag.Report{Width: banner, Color: !color.NoColor},
		Output:      out,
	}

	var labels []string
	for _, set := range [][]project.File{libs, srcs} {
		for _, f := range set {
			if f.Compile {
				labels = append(labels, f.Rel())
			}
		}
	}
	return req, labels, nil
}

func toInputs(files []project.File, cwd string) []buildpipeline.Input {
	inputs := make([]buildpipeline.Input, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, buildpipeline.Input{Path: f.Path, Base: f.Base, Cwd: cwd, Compile: f.Compile})
	}
	return inputs
}

// openBuildCache returns the compile cache when enabled for this build.
func openBuildCache(m *project.Manifest, opts buildOptions) (*buildpipeline.Cache, error) {
	enabled := m.Config.Build.Cache
	if opts.cache != nil {
		enabled = *opts.cache
	}
	if !enabled {
		return nil, nil
	}
	cache, err := buildpipeline.OpenCache("rewind")
	if err != nil {
		return nil, fmt.Errorf("failed to open compile cache: %w", err)
	}
	if opts.clearCache {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("failed to clear compile cache: %w", err)
		}
	}
	return cache, nil
}
