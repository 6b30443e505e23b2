package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewRequiresDirs(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without directories")
	}
}

func TestHandleFiltersEvents(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := New(Options{
		Dirs:   []string{root},
		Skip:   []string{out},
		Filter: func(p string) bool { return strings.HasSuffix(p, ".ts") },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: filepath.Join(root, "a.md"), Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(out, "a.ts"), Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(root, ".a.ts"), Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(root, "b.ts"), Op: fsnotify.Remove}, true},
	}
	for _, tc := range cases {
		if got := w.handle(tc.ev); got != tc.want {
			t.Errorf("handle(%v) = %v, want %v", tc.ev, got, tc.want)
		}
	}

	batch := w.flush()
	want := []string{filepath.Join(root, "a.ts"), filepath.Join(root, "b.ts")}
	if strings.Join(batch.Paths, "|") != strings.Join(want, "|") {
		t.Fatalf("batch = %v, want %v", batch.Paths, want)
	}
	if len(w.flush().Paths) != 0 {
		t.Fatal("flush should reset pending changes")
	}
}

func TestRunDeliversDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	w, err := New(Options{Dirs: []string{root}, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan Batch, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, b Batch) error {
			batches <- b
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	target := filepath.Join(root, "main.ts")
	if err := os.WriteFile(target, []byte("let a = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case b := <-batches:
		found := false
		for _, p := range b.Paths {
			if p == target {
				found = true
			}
		}
		if !found {
			t.Fatalf("batch %v does not contain %s", b.Paths, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for batch")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}
