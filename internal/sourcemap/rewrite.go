// Package sourcemap rewrites path-bearing fields of emitted source maps so
// they point at original sources instead of staged copies.
//
// The rewrite is not applied to every field: "mappings" and "names" carry
// encoded positions and identifiers and are copied through untouched, while
// "sourcesContent" is dropped and "file" is dropped unless kept on request.
package sourcemap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"rewind/internal/artifact"
)

// Fields that hold encoded data rather than paths.
var opaqueFields = map[string]struct{}{
	"mappings": {},
	"names":    {},
}

// Replacer maps physical paths inside text back to original paths.
type Replacer interface {
	Replace(text string) (string, error)
}

// MapParseError reports a map document whose content is not a JSON object.
type MapParseError struct {
	Path string
	Err  error
}

func (e *MapParseError) Error() string {
	return fmt.Sprintf("source map %s: %v", e.Path, e.Err)
}

func (e *MapParseError) Unwrap() error { return e.Err }

// Rewriter rewrites map artifacts in place.
type Rewriter struct {
	Paths Replacer
	// KeepFile preserves the "file" field instead of dropping it.
	KeepFile bool

	mu   sync.Mutex
	errs []error
}

// Rewrite transforms a's content when a is a map document. Other artifacts
// are left alone. A malformed document yields *MapParseError and keeps its
// original content.
func (r *Rewriter) Rewrite(a *artifact.Artifact) error {
	if !a.IsMap() {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(a.Content))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return &MapParseError{Path: a.Path, Err: err}
	}
	if doc == nil {
		return &MapParseError{Path: a.Path, Err: errors.New("document is null")}
	}

	delete(doc, "sourcesContent")
	if !r.KeepFile {
		delete(doc, "file")
	}
	cwd := a.Cwd
	if cwd == "" {
		cwd = a.Descriptor.Cwd
	}
	for key, value := range doc {
		if _, skip := opaqueFields[key]; skip {
			continue
		}
		switch v := value.(type) {
		case string:
			out, err := r.adjust(v, cwd)
			if err != nil {
				return err
			}
			doc[key] = out
		case []any:
			for i, el := range v {
				s, ok := el.(string)
				if !ok {
					continue
				}
				out, err := r.adjust(s, cwd)
				if err != nil {
					return err
				}
				v[i] = out
			}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &MapParseError{Path: a.Path, Err: err}
	}
	a.Content = bytes.TrimRight(buf.Bytes(), "\n")
	return nil
}

// adjust resolves v to an original path and renders it root-relative to cwd.
func (r *Rewriter) adjust(v, cwd string) (string, error) {
	if v == "" {
		return v, nil
	}
	original := v
	if r.Paths != nil {
		var err error
		if original, err = r.Paths.Replace(v); err != nil {
			return "", err
		}
	}
	return "/" + relativeTo(cwd, trimFileScheme(original)), nil
}

// trimFileScheme turns "file:///a.js" into "/a.js" and "file:///C:/a.js"
// into "C:/a.js".
func trimFileScheme(p string) string {
	const scheme = "file://"
	if len(p) < len(scheme) || !strings.EqualFold(p[:len(scheme)], scheme) {
		return p
	}
	p = p[len(scheme):]
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p
}

func relativeTo(cwd, p string) string {
	p = filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
	if !filepath.IsAbs(p) && cwd != "" {
		p = filepath.Join(cwd, p)
	}
	if cwd == "" {
		return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "/")
	}
	rel, err := filepath.Rel(cwd, p)
	if err != nil {
		return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "/")
	}
	return filepath.ToSlash(rel)
}

// Errors returns the parse errors collected by Stage.
func (r *Rewriter) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Stage rewrites maps as they pass. Parse errors are collected and the
// offending artifact is forwarded unmodified; replacement errors stop the run.
func (r *Rewriter) Stage() artifact.Stage {
	return func(ctx context.Context, in <-chan *artifact.Artifact, out chan<- *artifact.Artifact) error {
		for a := range in {
			if err := r.Rewrite(a); err != nil {
				var perr *MapParseError
				if !errors.As(err, &perr) {
					return err
				}
				r.mu.Lock()
				r.errs = append(r.errs, err)
				r.mu.Unlock()
			}
			if err := artifact.Send(ctx, out, a); err != nil {
				return err
			}
		}
		return nil
	}
}
