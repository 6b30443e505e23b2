package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rewind/internal/artifact"
	"rewind/internal/pathtrack"
	"rewind/internal/trace"
)

// Input is one file collected from the project.
type Input struct {
	Path    string // absolute path
	Base    string // directory Path is addressed relative to
	Cwd     string
	Compile bool
}

func (in Input) descriptor() artifact.Descriptor {
	return artifact.Descriptor{LogicalPath: in.Path, Cwd: in.Cwd, Base: in.Base}
}

func (in Input) rel() string {
	if in.Base != "" {
		if r, err := filepath.Rel(in.Base, in.Path); err == nil && !strings.HasPrefix(r, "..") {
			return r
		}
	}
	return filepath.Base(in.Path)
}

// CopyLibraries copies each library into outputRoot preserving its path
// relative to its base, recording original -> copy in session.
func CopyLibraries(ctx context.Context, libs []Input, outputRoot string, session *pathtrack.Session) ([]*artifact.Artifact, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, string(StageLibraries))
	defer span.End(fmt.Sprintf("%d files", len(libs)))

	outBase, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	staged := make([]*artifact.Artifact, 0, len(libs))
	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return staged, err
		}
		dst := filepath.Join(outBase, lib.rel())
		session.RecordBefore(lib.Path)
		content, err := copyFile(lib.Path, dst)
		if err != nil {
			return staged, fmt.Errorf("stage library %s: %w", lib.Path, err)
		}
		if err := session.RecordAfter(dst); err != nil {
			return staged, err
		}
		staged = append(staged, &artifact.Artifact{
			Kind:       artifact.KindSource,
			Path:       dst,
			Base:       outBase,
			Cwd:        lib.Cwd,
			Content:    content,
			Descriptor: lib.descriptor(),
			Compile:    lib.Compile,
		})
	}
	return staged, nil
}

// DefineSources wraps sources that are compiled in place. Their physical and
// logical paths coincide, so the session records identity pairs.
func DefineSources(ctx context.Context, srcs []Input, session *pathtrack.Session) ([]*artifact.Artifact, error) {
	_, span := trace.Start(ctx, trace.ScopePass, string(StageSources))
	defer span.End(fmt.Sprintf("%d files", len(srcs)))

	defined := make([]*artifact.Artifact, 0, len(srcs))
	for _, src := range srcs {
		content, err := os.ReadFile(src.Path)
		if err != nil {
			return defined, fmt.Errorf("read source %s: %w", src.Path, err)
		}
		if err := session.Record(src.Path, src.Path); err != nil {
			return defined, err
		}
		defined = append(defined, &artifact.Artifact{
			Kind:       artifact.KindSource,
			Path:       src.Path,
			Base:       src.Base,
			Cwd:        src.Cwd,
			Content:    content,
			Descriptor: src.descriptor(),
			Compile:    src.Compile,
		})
	}
	return defined, nil
}

// copyFile copies src to dst, creating parent directories, and returns the
// copied bytes.
func copyFile(src, dst string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src) // #nosec G304 -- library paths come from the manifest
	if err != nil {
		return nil, err
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return data, nil
	}
	// #nosec G306 -- staged libraries are served alongside compiled output
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, err
	}
	return data, nil
}
