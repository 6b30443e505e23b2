// Package artifact defines the units that flow between pipeline stages and
// the channel plumbing used to connect those stages.
package artifact

import (
	"path/filepath"
	"strings"
)

// Kind tells what an Artifact carries.
type Kind uint8

const (
	// KindSource is an input file before compilation.
	KindSource Kind = iota + 1
	// KindScript is compiled output.
	KindScript
	// KindMap is a source map document.
	KindMap
	// KindFailure is a file that failed to compile; it has no content.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindScript:
		return "script"
	case KindMap:
		return "map"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Descriptor identifies where a file logically lives, independent of where
// it is staged. One per input file; never mutated after creation.
type Descriptor struct {
	LogicalPath string // absolute path of the original file
	Cwd         string // working directory the file was collected from
	Base        string // directory relative paths are computed against
}

// Artifact is one unit travelling through the pipeline.
type Artifact struct {
	Kind       Kind
	Path       string // physical location
	Base       string // base for Relative
	Cwd        string
	Content    []byte
	Descriptor Descriptor

	// Compile marks sources that should go through the compile stage.
	Compile bool

	Failure *Failure
	Lint    *LintReport
}

// Failure carries the raw diagnostic of a failed compile.
type Failure struct {
	SourcePath string // physical path handed to the compiler
	OutputBase string // directory the compiler was writing into
	Text       string // raw stderr or invocation error text
}

// LintReport is the result set an external linter attached to a file.
type LintReport struct {
	Success bool
	Ignored bool
	Results []LintResult
}

// LintResult is one linter finding.
type LintResult struct {
	File   string
	Line   uint32
	Column uint32
	Reason string
	Code   string
}

// Relative returns Path relative to Base using forward slashes.
// When Path is outside Base the cleaned Path is returned.
func (a *Artifact) Relative() string {
	if a == nil {
		return ""
	}
	if a.Base == "" {
		return filepath.ToSlash(filepath.Clean(a.Path))
	}
	rel, err := filepath.Rel(a.Base, a.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(a.Path))
	}
	return filepath.ToSlash(rel)
}

// IsMap reports whether the artifact is a source map document by extension.
func (a *Artifact) IsMap() bool {
	return a != nil && a.Kind != KindFailure && filepath.Ext(a.Path) == ".map"
}

// LintFailed reports whether the artifact carries failed, non-ignored lint results.
func (a *Artifact) LintFailed() bool {
	return a != nil && a.Lint != nil && !a.Lint.Success && !a.Lint.Ignored
}
