// Package watch turns filesystem notifications into debounced rebuild batches.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"rewind/internal/trace"
)

// DefaultDebounce is the quiet period that closes a batch.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Dirs     []string      // watched recursively
	Skip     []string      // directories never watched, e.g. the output root
	Debounce time.Duration // defaults to DefaultDebounce
	Filter   func(path string) bool
}

// Batch is the set of paths that changed during one quiet period.
type Batch struct {
	Paths []string
}

// Watcher reports changes under a set of directory trees.
type Watcher struct {
	opts    Options
	fsw     *fsnotify.Watcher
	skip    []string
	pending map[string]fsnotify.Op
}

// New creates a watcher and registers every directory under opts.Dirs.
func New(opts Options) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, fmt.Errorf("watch: no directories")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{opts: opts, fsw: fsw, pending: make(map[string]fsnotify.Op)}
	for _, s := range opts.Skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(s); err == nil {
			w.skip = append(w.skip, abs)
		}
	}
	for _, dir := range opts.Dirs {
		if err := w.addTree(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the underlying notifier.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done, calling onChange once per batch. Batches are
// delivered sequentially; changes seen while onChange runs form the next one.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, Batch) error) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			trace.Note(ctx, trace.ScopeDriver, "watch_error", err.Error())

		case <-timer.C:
			batch := w.flush()
			if len(batch.Paths) == 0 {
				continue
			}
			trace.Note(ctx, trace.ScopeDriver, "watch_batch", fmt.Sprintf("%d paths", len(batch.Paths)))
			if err := onChange(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// handle records ev and reports whether it belongs in a batch.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	path := filepath.Clean(ev.Name)
	if w.skipped(path) || hidden(filepath.Base(path)) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = w.addTree(path)
			return false
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if w.opts.Filter != nil && !w.opts.Filter(path) {
		return false
	}
	w.pending[path] |= ev.Op
	return true
}

func (w *Watcher) flush() Batch {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	clear(w.pending)
	return Batch{Paths: paths}
}

func (w *Watcher) addTree(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (hidden(d.Name()) || w.skipped(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) skipped(path string) bool {
	for _, dir := range w.skip {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
