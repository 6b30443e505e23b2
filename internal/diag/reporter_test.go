package diag_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"rewind/internal/artifact"
	"rewind/internal/diag"
	"rewind/internal/pathtrack"
)

func trackedRegistry(t *testing.T, pairs ...[2]string) *pathtrack.Registry {
	t.Helper()
	reg := pathtrack.NewRegistry()
	s := reg.Create("compile")
	for _, p := range pairs {
		if err := s.Record(p[0], p[1]); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	return reg
}

func failure(src, cwd, base, text string) *artifact.Artifact {
	return &artifact.Artifact{
		Kind: artifact.KindFailure,
		Path: base,
		Cwd:  cwd,
		Failure: &artifact.Failure{
			SourcePath: src,
			OutputBase: base,
			Text:       text,
		},
	}
}

func TestCompileReporterImportNotFoundScenario(t *testing.T) {
	reg := trackedRegistry(t, [2]string{"/proj/src/a.js", "/tmp/build/a.js"})
	var out bytes.Buffer
	r := &diag.CompileReporter{Paths: reg, Out: &out}

	src := []*artifact.Artifact{
		failure("/tmp/build/a.js", "/proj", "/tmp/build", "Specified as './missing'.\nImported by ./a.\n"),
		{Kind: artifact.KindScript, Path: "/tmp/build/b.js"},
	}
	got, err := artifact.Chain(context.Background(), src, r.Stage())
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(got) != 1 || got[0].Kind != artifact.KindScript {
		t.Fatalf("expected only the script to pass through, got %d artifacts", len(got))
	}
	want := "\n/proj/src/a.js:0:0: Import not found: ./missing\n\n"
	if out.String() != want {
		t.Fatalf("report = %q, want %q", out.String(), want)
	}
}

func TestCompileReporterDeduplicates(t *testing.T) {
	var out bytes.Buffer
	r := &diag.CompileReporter{Paths: pathtrack.NewRegistry(), Out: &out}
	raw := "/tmp/b.js:1:1: Unexpected token\n"
	for i := 0; i < 2; i++ {
		if fwd, err := r.Observe(failure("/tmp/b.js", "/proj", "/tmp", raw)); err != nil || fwd {
			t.Fatalf("Observe = %v, %v", fwd, err)
		}
	}
	if r.Failures() != 2 {
		t.Fatalf("Failures = %d", r.Failures())
	}
	if msgs := r.Messages(); len(msgs) != 1 {
		t.Fatalf("Messages = %q", msgs)
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if strings.Count(out.String(), "Unexpected token") != 1 {
		t.Fatalf("report = %q", out.String())
	}
}

func TestCompileReporterForwardsToSink(t *testing.T) {
	bag := diag.NewBag(0)
	r := &diag.CompileReporter{Sink: diag.BagReporter{Bag: bag}}
	if _, err := r.Observe(failure("/tmp/b.js", "/proj", "/tmp", "boom")); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if !bag.HasErrors() || bag.Len() != 1 {
		t.Fatalf("bag = %+v", bag.Items())
	}
}

func TestEmptyReportersWriteNothing(t *testing.T) {
	var out bytes.Buffer
	rep := diag.Report{Width: 40}
	c := &diag.CompileReporter{Report: rep, Out: &out}
	l := &diag.LintReporter{Report: rep, Out: &out}
	src := []*artifact.Artifact{{Kind: artifact.KindScript, Path: "/out/a.js"}}
	got, err := artifact.Chain(context.Background(), src, l.Stage(), c.Stage())
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("artifacts = %d", len(got))
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestReportBanners(t *testing.T) {
	cell := runewidth.StringWidth("▼")
	if cell < 1 {
		cell = 1
	}
	rep := diag.Report{Width: 3 * cell}
	got := rep.Render([]string{"a\n", "b\n"})
	want := "▼▼▼\n\na\n\nb\n\n▲▲▲\n"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
	if rep.Render(nil) != "" {
		t.Fatalf("empty report rendered text")
	}
}

func lintArtifact(path string, results ...artifact.LintResult) *artifact.Artifact {
	return &artifact.Artifact{
		Kind: artifact.KindSource,
		Path: path,
		Lint: &artifact.LintReport{Results: results},
	}
}

func TestLintReporterParagraphs(t *testing.T) {
	reg := trackedRegistry(t,
		[2]string{"/proj/lib/a.js", "/tmp/build/a.js"},
		[2]string{"/proj/lib/b.js", "/tmp/build/b.js"},
	)
	var out bytes.Buffer
	r := &diag.LintReporter{Paths: reg, Out: &out}

	src := []*artifact.Artifact{
		lintArtifact("/tmp/build/a.js",
			artifact.LintResult{File: "/tmp/build/a.js", Line: 1, Column: 2, Reason: "Missing semicolon."},
			artifact.LintResult{File: "/tmp/build/a.js", Line: 3, Column: 1, Reason: "Unused x."},
		),
		lintArtifact("/tmp/build/b.js",
			artifact.LintResult{File: "/tmp/build/b.js", Line: 7, Column: 9, Reason: "Bad escape."},
		),
		// ignored and successful sets are skipped
		{Kind: artifact.KindSource, Path: "/tmp/build/c.js", Lint: &artifact.LintReport{Ignored: true,
			Results: []artifact.LintResult{{File: "/tmp/build/c.js", Line: 1, Column: 1, Reason: "x"}}}},
		{Kind: artifact.KindSource, Path: "/tmp/build/d.js", Lint: &artifact.LintReport{Success: true}},
	}
	got, err := artifact.Chain(context.Background(), src, r.Stage())
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(got) != len(src) {
		t.Fatalf("lint reporter dropped artifacts: %d of %d", len(got), len(src))
	}
	want := "\n" +
		"/proj/lib/a.js:1:2: Missing semicolon.\n/proj/lib/a.js:3:1: Unused x.\n" +
		"\n" +
		"/proj/lib/b.js:7:9: Bad escape.\n" +
		"\n"
	if out.String() != want {
		t.Fatalf("report = %q, want %q", out.String(), want)
	}
	if r.Findings() != 3 {
		t.Fatalf("Findings = %d", r.Findings())
	}
}

func TestLintReporterSuppressesDuplicateParagraphs(t *testing.T) {
	r := &diag.LintReporter{}
	res := artifact.LintResult{File: "/a.js", Line: 1, Column: 1, Reason: "x"}
	for _, a := range []*artifact.Artifact{
		lintArtifact("/a.js", res),
		lintArtifact("/b.js", artifact.LintResult{File: "/b.js", Line: 2, Column: 2, Reason: "y"}),
		lintArtifact("/a.js", res),
	} {
		if err := r.Observe(a); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	if p := r.Paragraphs(); len(p) != 2 {
		t.Fatalf("Paragraphs = %q", p)
	}
}
