package buildpipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rewind/internal/artifact"
	"rewind/internal/diag"
)

type buildFixture struct {
	root string
	out  string
	a    string
	b    string
	lib  string
}

func newFixture(t *testing.T) buildFixture {
	t.Helper()
	root := t.TempDir()
	fx := buildFixture{
		root: root,
		out:  filepath.Join(root, "out"),
		a:    filepath.Join(root, "src", "a.ts"),
		b:    filepath.Join(root, "src", "b.ts"),
		lib:  filepath.Join(root, "lib", "vendor.js"),
	}
	mustWrite(t, fx.a, "let a = 1")
	mustWrite(t, fx.b, "FAIL")
	mustWrite(t, fx.lib, "window.vendor = {}")
	return fx
}

func (fx buildFixture) request(inv Invoker, out *bytes.Buffer) *BuildRequest {
	src := filepath.Join(fx.root, "src")
	return &BuildRequest{
		Libraries: []Input{{Path: fx.lib, Base: fx.root, Cwd: fx.root}},
		Sources: []Input{
			{Path: fx.a, Base: src, Cwd: fx.root, Compile: true},
			{Path: fx.b, Base: src, Cwd: fx.root, Compile: true},
		},
		OutputRoot: fx.out,
		Command:    "fakecc",
		Invoker:    inv,
		Jobs:       2,
		Output:     out,
	}
}

func TestBuildEndToEnd(t *testing.T) {
	fx := newFixture(t)
	var out bytes.Buffer
	cc := &fakeCompiler{}

	res, err := Build(context.Background(), fx.request(cc, &out))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failures != 1 {
		t.Fatalf("failures = %d, want 1", res.Failures)
	}

	wantReport := "\n" + fx.b + ":3:1: unexpected token\n\n"
	if out.String() != wantReport {
		t.Fatalf("report = %q, want %q", out.String(), wantReport)
	}
	if !res.Diagnostics.HasErrors() {
		t.Fatal("expected the failure in the diagnostics bag")
	}

	if got := mustRead(t, filepath.Join(fx.out, "lib", "vendor.js")); got != "window.vendor = {}" {
		t.Fatalf("staged library = %q", got)
	}
	if got := mustRead(t, filepath.Join(fx.out, "a.js")); got != "console.log(1);\n//# sourceMappingURL=a.js.map\n" {
		t.Fatalf("script = %q", got)
	}
	wantMap := `{
  "mappings": "AAAA",
  "names": [
    "/keep"
  ],
  "sources": [
    "/src/a.ts"
  ],
  "version": 3
}`
	if got := mustRead(t, filepath.Join(fx.out, "a.js.map")); got != wantMap {
		t.Fatalf("map =\n%s\nwant\n%s", got, wantMap)
	}
	if _, err := os.Stat(filepath.Join(fx.out, ".tmp")); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed, stat err = %v", err)
	}
	if len(res.Scripts()) != 1 {
		t.Fatalf("scripts = %d, want 1", len(res.Scripts()))
	}
	if len(res.Registry.Sessions()) != 3 {
		t.Fatalf("sessions = %d, want 3", len(res.Registry.Sessions()))
	}
	for _, stage := range []Stage{StageLibraries, StageSources, StageCompile, StageMaps} {
		if _, ok := res.Phases.Lookup(string(stage)); !ok {
			t.Errorf("phase %s not timed: %+v", stage, res.Phases)
		}
	}
}

func TestBuildScriptPrecedesMap(t *testing.T) {
	fx := newFixture(t)
	mustWrite(t, fx.b, "let b = 2")
	var out bytes.Buffer

	res, err := Build(context.Background(), fx.request(&fakeCompiler{}, &out))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	scripts := map[string]int{}
	for i, a := range res.Artifacts {
		switch a.Kind {
		case artifact.KindScript:
			scripts[a.Descriptor.LogicalPath] = i
		case artifact.KindMap:
			idx, ok := scripts[a.Descriptor.LogicalPath]
			if !ok || idx > i {
				t.Fatalf("map %s arrived before its script", a.Path)
			}
		}
	}
	if len(scripts) != 2 {
		t.Fatalf("scripts = %v", scripts)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected report %q", out.String())
	}
}

func TestBuildKeepTmpAndMapFile(t *testing.T) {
	fx := newFixture(t)
	var out bytes.Buffer
	req := fx.request(&fakeCompiler{}, &out)
	req.KeepTmp = true
	req.KeepMapFile = true

	if _, err := Build(context.Background(), req); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.out, ".tmp", "a.js")); err != nil {
		t.Fatalf("transient output should be kept: %v", err)
	}
	if got := mustRead(t, filepath.Join(fx.out, "a.js.map")); !strings.Contains(got, `"file": "/a.js"`) {
		t.Fatalf("file field should be kept and rebased:\n%s", got)
	}
}

func TestBuildCacheHit(t *testing.T) {
	fx := newFixture(t)
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cc := &fakeCompiler{}

	var out bytes.Buffer
	req := fx.request(cc, &out)
	req.Cache = cache
	if _, err := Build(context.Background(), req); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if got := cc.calls.Load(); got != 2 {
		t.Fatalf("calls after first build = %d, want 2", got)
	}

	if err := os.RemoveAll(fx.out); err != nil {
		t.Fatal(err)
	}
	sink := &RecordingSink{}
	out.Reset()
	req = fx.request(cc, &out)
	req.Cache = cache
	req.Progress = sink
	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	// only the failing file runs again
	if got := cc.calls.Load(); got != 3 {
		t.Fatalf("calls after second build = %d, want 3", got)
	}
	if res.Failures != 1 {
		t.Fatalf("failures = %d", res.Failures)
	}
	if got := mustRead(t, filepath.Join(fx.out, "a.js")); !strings.Contains(got, "a.js.map") {
		t.Fatalf("cached script not relocated: %q", got)
	}

	var cached, failed bool
	for _, ev := range sink.Events() {
		if ev.File == "a.ts" && ev.Status == StatusCached {
			cached = true
		}
		if ev.File == "b.ts" && ev.Status == StatusError {
			failed = true
		}
	}
	if !cached || !failed {
		t.Fatalf("events missing cached=%v failed=%v: %+v", cached, failed, sink.Events())
	}
}

func TestBuildLintReport(t *testing.T) {
	fx := newFixture(t)
	mustWrite(t, fx.b, "let b = 2")
	lint, err := diag.ParseLintResults([]byte(`[
		// jshint output
		{"file": "src/a.ts", "error": {"line": 1, "character": 10, "reason": "Missing semicolon.", "code": "W033"}},
	]`), fx.root)
	if err != nil {
		t.Fatalf("ParseLintResults: %v", err)
	}

	var out bytes.Buffer
	sink := &RecordingSink{}
	req := fx.request(&fakeCompiler{}, &out)
	req.LintResults = lint
	req.Progress = sink
	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.LintIssues != 1 {
		t.Fatalf("lint issues = %d", res.LintIssues)
	}
	want := "\n" + fx.a + ":1:10: Missing semicolon.\n\n"
	if out.String() != want {
		t.Fatalf("report = %q, want %q", out.String(), want)
	}
	for _, stage := range []Stage{StageLint, StageReport} {
		got := stageStatuses(sink.Events(), stage)
		if len(got) != 2 || got[0] != StatusWorking || got[1] != StatusDone {
			t.Errorf("%s events = %v, want [working done]", stage, got)
		}
	}
}

func TestBuildWithoutLintSkipsLintStage(t *testing.T) {
	fx := newFixture(t)
	var out bytes.Buffer
	sink := &RecordingSink{}
	req := fx.request(&fakeCompiler{}, &out)
	req.Progress = sink
	if _, err := Build(context.Background(), req); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := stageStatuses(sink.Events(), StageLint); len(got) != 0 {
		t.Fatalf("lint events = %v, want none", got)
	}
	if got := stageStatuses(sink.Events(), StageReport); len(got) != 2 {
		t.Fatalf("report events = %v", got)
	}
}

func stageStatuses(events []Event, stage Stage) []Status {
	var out []Status
	for _, ev := range events {
		if ev.File == "" && ev.Stage == stage {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestBuildMissingOutputIsFailure(t *testing.T) {
	fx := newFixture(t)
	mustWrite(t, fx.b, "let b = 2")
	var out bytes.Buffer

	res, err := Build(context.Background(), fx.request(&fakeCompiler{silent: true}, &out))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failures != 2 {
		t.Fatalf("failures = %d, want 2", res.Failures)
	}
	if !strings.Contains(out.String(), fx.a+":0:0: compiler produced no output at "+fx.a) {
		t.Fatalf("report = %q", out.String())
	}
}

func TestBuildMapParseErrorIsCollected(t *testing.T) {
	fx := newFixture(t)
	mustWrite(t, fx.b, "let b = 2")
	var out bytes.Buffer
	req := fx.request(brokenMapCompiler{}, &out)

	res, err := Build(context.Background(), req)
	if err == nil {
		t.Fatal("expected joined map errors")
	}
	if len(res.MapErrors) != 2 {
		t.Fatalf("map errors = %d, want 2", len(res.MapErrors))
	}
	if got := mustRead(t, filepath.Join(fx.out, "a.js.map")); got != "not json" {
		t.Fatalf("broken map should be written unchanged, got %q", got)
	}
}

type brokenMapCompiler struct{}

func (brokenMapCompiler) Invoke(_ context.Context, inv Invocation) (InvokeResult, error) {
	out := inv.Args[2]
	stem := strings.TrimSuffix(filepath.Base(out), ".js")
	if err := os.WriteFile(out, []byte("x"), 0o644); err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{}, os.WriteFile(filepath.Join(filepath.Dir(out), stem+".map"), []byte("not json"), 0o644)
}

func TestBuildRejectsIncompleteRequest(t *testing.T) {
	cases := []struct {
		name string
		req  *BuildRequest
	}{
		{"nil", nil},
		{"no output", &BuildRequest{Command: "cc"}},
		{"no command", &BuildRequest{OutputRoot: t.TempDir()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(context.Background(), tc.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	if _, err := Build(ctx, fx.request(&fakeCompiler{}, &out)); err == nil {
		t.Fatal("expected cancellation error")
	}
}
