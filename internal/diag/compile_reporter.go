package diag

import (
	"context"
	"io"
	"strings"
	"sync"

	"rewind/internal/artifact"
)

// Replacer maps physical paths inside text back to original paths.
type Replacer interface {
	Replace(text string) (string, error)
}

// CompileReporter intercepts failure artifacts, buffers one deduplicated
// message per distinct failure and writes them as a single report when the
// stream ends. Non-failure artifacts are forwarded untouched.
type CompileReporter struct {
	Paths  Replacer
	Report Report
	Out    io.Writer
	Sink   Reporter

	mu       sync.Mutex
	buf      Buffer
	failures int
}

// Observe records a failure. It reports whether a should travel downstream.
func (r *CompileReporter) Observe(a *artifact.Artifact) (bool, error) {
	if a == nil || a.Kind != artifact.KindFailure {
		return true, nil
	}
	fc := FailureContext{Cwd: a.Cwd}
	raw := ""
	if a.Failure != nil {
		fc.SourcePath = a.Failure.SourcePath
		fc.OutputBase = a.Failure.OutputBase
		raw = a.Failure.Text
	}
	d := Classify(raw, fc)
	if r.Paths != nil {
		file, err := r.Paths.Replace(d.File)
		if err != nil {
			return false, err
		}
		msg, err := r.Paths.Replace(d.Message)
		if err != nil {
			return false, err
		}
		d.File, d.Message = file, msg
	}

	r.mu.Lock()
	r.failures++
	added := r.buf.Add(strings.TrimRight(d.String(), " \t\r\n") + "\n")
	r.mu.Unlock()
	if added && r.Sink != nil {
		r.Sink.Report(d)
	}
	return false, nil
}

// Failures is the number of failure artifacts seen, duplicates included.
func (r *CompileReporter) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Messages returns the buffered deduplicated messages.
func (r *CompileReporter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.buf.Items()...)
}

// Flush writes the buffered report.
func (r *CompileReporter) Flush() error {
	return r.Report.Write(r.Out, r.Messages())
}

func (r *CompileReporter) Stage() artifact.Stage {
	return func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
		for a := range in {
			forward, err := r.Observe(a)
			if err != nil {
				return err
			}
			if !forward {
				continue
			}
			if err := artifact.Send(ctx, out, a); err != nil {
				return err
			}
		}
		return r.Flush()
	}
}
