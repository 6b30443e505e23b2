package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rewind/internal/artifact"
	"rewind/internal/pathtrack"
	"rewind/internal/trace"
)

// DefaultCompilerArgs is used when the manifest names no arguments.
var DefaultCompilerArgs = []string{"--source-maps", "--out", "{out}", "{src}"}

var inFlight atomic.Int64

// InFlight returns the number of compiler processes currently running in
// this process.
func InFlight() int64 {
	return inFlight.Load()
}

// CompileStage runs the external compiler once per source file and turns
// the result into script and map artifacts, or a single failure artifact.
type CompileStage struct {
	OutputRoot  string
	ScratchRoot string // defaults to <OutputRoot>/.tmp
	Command     string
	Args        []string
	Invoker     Invoker
	Session     *pathtrack.Session
	Jobs        int
	KeepTmp     bool
	Cache       *Cache
	Progress    ProgressSink
}

// compileLayout holds every path derived for one source file.
type compileLayout struct {
	rel        string
	outBase    string
	transient  string
	finalDir   string
	finalJS    string
	finalMap   string
	scratchDir string
	stem       string
}

func (c *CompileStage) layout(src *artifact.Artifact) (compileLayout, error) {
	var l compileLayout
	outBase, err := filepath.Abs(c.OutputRoot)
	if err != nil {
		return l, fmt.Errorf("resolve output root: %w", err)
	}
	scratch := c.ScratchRoot
	if scratch == "" {
		scratch = filepath.Join(outBase, ".tmp")
	}
	if scratch, err = filepath.Abs(scratch); err != nil {
		return l, fmt.Errorf("resolve scratch root: %w", err)
	}

	rel := filepath.Base(src.Path)
	if src.Base != "" {
		if r, relErr := filepath.Rel(src.Base, src.Path); relErr == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	relDir := filepath.Dir(rel)
	name := filepath.Base(src.Path)
	l.stem = strings.TrimSuffix(name, filepath.Ext(name))
	l.rel = filepath.ToSlash(rel)
	l.outBase = outBase
	l.scratchDir = filepath.Join(scratch, relDir)
	l.transient = filepath.Join(l.scratchDir, l.stem+".js")
	l.finalDir = filepath.Join(outBase, relDir)
	l.finalJS = filepath.Join(l.finalDir, l.stem+".js")
	l.finalMap = filepath.Join(l.finalDir, l.stem+".js.map")
	return l, nil
}

func (c *CompileStage) invoker() Invoker {
	if c.Invoker != nil {
		return c.Invoker
	}
	return ExecInvoker{}
}

func (c *CompileStage) args() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	return DefaultCompilerArgs
}

// Compile processes one source artifact. Compiler failures are returned as a
// failure artifact; the error result is reserved for problems that must stop
// the whole run, such as a broken tracking session or cancellation.
func (c *CompileStage) Compile(ctx context.Context, src *artifact.Artifact) ([]*artifact.Artifact, error) {
	l, err := c.layout(src)
	if err != nil {
		return nil, err
	}
	logical := src.Descriptor.LogicalPath
	if logical == "" {
		logical = src.Path
	}
	// register before dispatch so failures mid-invocation still resolve
	if c.Session != nil {
		if err := c.Session.Record(logical, l.transient); err != nil {
			return nil, err
		}
		if err := c.Session.Record(logical, l.finalJS); err != nil {
			return nil, err
		}
	}

	ctx, span := trace.Start(ctx, trace.ScopeFile, "compile:"+l.rel)
	start := time.Now()
	emitFile(c.Progress, l.rel, StageCompile, StatusWorking, nil, 0)

	out, cached, err := c.produce(ctx, src, l)
	switch {
	case err == nil:
		status := StatusDone
		detail := "ok"
		if cached {
			status, detail = StatusCached, "cached"
		}
		span.End(detail)
		emitFile(c.Progress, l.rel, StageCompile, status, nil, time.Since(start))
		return out, nil
	case ctx.Err() != nil:
		span.End("cancelled")
		return nil, ctx.Err()
	default:
		var fe *fileError
		if !errors.As(err, &fe) {
			span.End("error")
			return nil, err
		}
		span.End("failed")
		emitFile(c.Progress, l.rel, StageCompile, StatusError, fe, time.Since(start))
		return []*artifact.Artifact{{
			Kind:       artifact.KindFailure,
			Path:       l.finalDir,
			Base:       l.outBase,
			Cwd:        src.Descriptor.Cwd,
			Descriptor: src.Descriptor,
			Failure: &artifact.Failure{
				SourcePath: src.Path,
				OutputBase: l.outBase,
				Text:       fe.text,
			},
		}}, nil
	}
}

// fileError marks a per-file failure that becomes a failure artifact.
type fileError struct {
	text string
}

func (e *fileError) Error() string { return e.text }

func fileFailure(format string, args ...any) error {
	return &fileError{text: fmt.Sprintf(format, args...)}
}

func (c *CompileStage) produce(ctx context.Context, src *artifact.Artifact, l compileLayout) ([]*artifact.Artifact, bool, error) {
	content := src.Content
	if content == nil {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, false, fileFailure("%s:0:0: %v", src.Path, err)
		}
		content = data
	}

	var key CacheKey
	if c.Cache != nil {
		key = Key(c.Command, c.args(), l.rel, content)
		var payload CachePayload
		if ok, err := c.Cache.Get(key, &payload); err == nil && ok {
			out, err := c.relocate(src, l, payload.Script, payload.Map, payload.HasMap)
			return out, true, err
		}
	}

	if err := os.MkdirAll(l.scratchDir, 0o750); err != nil {
		return nil, false, fileFailure("%s:0:0: create scratch dir: %v", src.Path, err)
	}
	inv := Invocation{
		Name: c.Command,
		Args: expandArgs(c.args(), src.Path, l.transient),
		Dir:  src.Descriptor.Cwd,
	}
	_, pspan := trace.Start(ctx, trace.ScopeProcess, inv.Name)
	pspan.Attr("file", l.rel)
	inFlight.Add(1)
	res, err := c.invoker().Invoke(ctx, inv)
	inFlight.Add(-1)
	pspan.End(inv.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, &fileError{text: failureText(inv, res, err)}
	}

	script, err := os.ReadFile(l.transient)
	if err != nil {
		return nil, false, fileFailure("%s:0:0: compiler produced no output at %s", src.Path, l.transient)
	}
	mapData, hasMap := readCompanionMap(l)

	if !c.KeepTmp {
		_ = os.Remove(l.transient)
		_ = os.Remove(filepath.Join(l.scratchDir, l.stem+".map"))
		_ = os.Remove(filepath.Join(l.scratchDir, l.stem+".js.map"))
	}

	out, err := c.relocate(src, l, script, mapData, hasMap)
	if err == nil && c.Cache != nil {
		// a failed cache write only costs a recompile next time
		_ = c.Cache.Put(key, &CachePayload{Script: script, Map: mapData, HasMap: hasMap})
	}
	return out, false, err
}

func readCompanionMap(l compileLayout) ([]byte, bool) {
	for _, name := range []string{l.stem + ".map", l.stem + ".js.map"} {
		data, err := os.ReadFile(filepath.Join(l.scratchDir, name))
		if err == nil {
			return data, true
		}
	}
	return nil, false
}

// relocate patches the map directive and writes script and map into the
// output tree. The script artifact always precedes its map.
func (c *CompileStage) relocate(src *artifact.Artifact, l compileLayout, script, mapData []byte, hasMap bool) ([]*artifact.Artifact, error) {
	if hasMap {
		script = PatchMapDirective(script, l.stem)
	}
	if err := os.MkdirAll(l.finalDir, 0o750); err != nil {
		return nil, fileFailure("%s:0:0: create output dir: %v", src.Path, err)
	}
	if err := writeFileAtomic(l.finalJS, script); err != nil {
		return nil, fileFailure("%s:0:0: write %s: %v", src.Path, l.finalJS, err)
	}
	out := []*artifact.Artifact{{
		Kind:       artifact.KindScript,
		Path:       l.finalJS,
		Base:       l.outBase,
		Cwd:        src.Descriptor.Cwd,
		Content:    script,
		Descriptor: src.Descriptor,
	}}
	if !hasMap {
		return out, nil
	}
	if err := writeFileAtomic(l.finalMap, mapData); err != nil {
		return nil, fileFailure("%s:0:0: write %s: %v", src.Path, l.finalMap, err)
	}
	return append(out, &artifact.Artifact{
		Kind:       artifact.KindMap,
		Path:       l.finalMap,
		Base:       l.outBase,
		Cwd:        src.Descriptor.Cwd,
		Content:    mapData,
		Descriptor: src.Descriptor,
	}), nil
}

// PatchMapDirective points a "//# sourceMappingURL=<stem>.map" line at the
// relocated "<stem>.js.map" sitting next to the script.
func PatchMapDirective(script []byte, stem string) []byte {
	re := regexp.MustCompile(`(?im)^(\s*//#\s*sourceMappingURL\s*=\s*)(?:\S*[\\/])?` +
		regexp.QuoteMeta(stem) + `\.map[ \t]*(\r?)$`)
	repl := "${1}" + strings.ReplaceAll(stem, "$", "$$") + ".js.map${2}"
	return re.ReplaceAll(script, []byte(repl))
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".rewind-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// #nosec G302 -- compiled scripts are meant to be readable by the web server
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Stage compiles sources concurrently on at most Jobs workers. Artifacts that
// are not compile candidates pass through unchanged.
func (c *CompileStage) Stage() artifact.Stage {
	return func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
		ctx, span := trace.Start(ctx, trace.ScopePass, string(StageCompile))
		defer span.End("")

		jobs := c.Jobs
		if jobs <= 0 {
			jobs = runtime.GOMAXPROCS(0)
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)

		for a := range in {
			if gctx.Err() != nil {
				break
			}
			if a.Kind != artifact.KindSource || !a.Compile {
				if artifact.Send(gctx, out, a) != nil {
					break
				}
				continue
			}
			src := a
			g.Go(func() error {
				produced, err := c.Compile(gctx, src)
				if err != nil {
					return err
				}
				for _, p := range produced {
					if err := artifact.Send(gctx, out, p); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return ctx.Err()
	}
}
