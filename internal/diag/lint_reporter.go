package diag

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"rewind/internal/artifact"
)

// LintReporter folds lint results attached to artifacts into per-file
// paragraphs and reports them once the stream ends. Every artifact is
// forwarded unchanged.
type LintReporter struct {
	Paths  Replacer
	Report Report
	Out    io.Writer
	Sink   Reporter

	mu       sync.Mutex
	buf      Buffer
	para     strings.Builder
	prevFile string
	findings int
}

// Observe appends the artifact's failed lint results to the running paragraph.
func (r *LintReporter) Observe(a *artifact.Artifact) error {
	if !a.LintFailed() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range a.Lint.Results {
		file := res.File
		if file == "" {
			file = a.Path
		}
		if r.Paths != nil {
			var err error
			if file, err = r.Paths.Replace(file); err != nil {
				return err
			}
		}
		if r.prevFile != "" && r.prevFile != file {
			r.flushParagraphLocked()
		}
		d := New(SevWarning, LntFinding, file, res.Line, res.Column, res.Reason)
		fmt.Fprintf(&r.para, "%s\n", d.String())
		r.prevFile = file
		r.findings++
		if r.Sink != nil {
			r.Sink.Report(d)
		}
	}
	return nil
}

func (r *LintReporter) flushParagraphLocked() {
	if r.para.Len() == 0 {
		return
	}
	r.buf.Add(r.para.String())
	r.para.Reset()
}

// Findings is the number of lint results observed.
func (r *LintReporter) Findings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findings
}

// Paragraphs flushes the trailing paragraph and returns every buffered one.
func (r *LintReporter) Paragraphs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushParagraphLocked()
	return append([]string(nil), r.buf.Items()...)
}

// Flush writes the buffered report.
func (r *LintReporter) Flush() error {
	return r.Report.Write(r.Out, r.Paragraphs())
}

func (r *LintReporter) Stage() artifact.Stage {
	return func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
		for a := range in {
			if err := r.Observe(a); err != nil {
				return err
			}
			if err := artifact.Send(ctx, out, a); err != nil {
				return err
			}
		}
		return r.Flush()
	}
}
