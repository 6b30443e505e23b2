package main

import (
	"fmt"
	"io"

	"rewind/internal/buildpipeline"
	"rewind/internal/observ"
)

var stageVerbs = []struct {
	stage buildpipeline.Stage
	verb  string
}{
	{buildpipeline.StageLibraries, "staged"},
	{buildpipeline.StageSources, "collected"},
	{buildpipeline.StageCompile, "compiled"},
	{buildpipeline.StageMaps, "mapped"},
}

// printStageTimings writes one "<verb> <n> ms (<note>)" line per finished stage.
func printStageTimings(out io.Writer, phases observ.Report) error {
	if out == nil {
		return nil
	}
	for _, sv := range stageVerbs {
		p, ok := phases.Lookup(string(sv.stage))
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %s in %.1f ms\n", sv.verb, p.Note, p.DurationMS); err != nil {
			return err
		}
	}
	return nil
}
