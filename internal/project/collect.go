package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is one project file selected by a FileSet.
type File struct {
	Path    string // absolute
	Base    string // absolute directory Path is addressed relative to
	Compile bool
}

// Rel returns Path relative to Base using forward slashes.
func (f File) Rel() string {
	if rel, err := filepath.Rel(f.Base, f.Path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(f.Path)
}

// Collect expands set against root. Files under any directory in skip are
// left out, which keeps build output from being fed back as input.
// Results are sorted and free of duplicates.
func Collect(root string, set FileSet, defaultCompile bool, skip ...string) ([]File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	base := root
	if b := strings.TrimSpace(set.Base); b != "" {
		b = filepath.FromSlash(b)
		if filepath.IsAbs(b) {
			base = filepath.Clean(b)
		} else {
			base = filepath.Join(root, b)
		}
	}
	compile := defaultCompile
	if set.Compile != nil {
		compile = *set.Compile
	}

	for _, pattern := range append(append([]string(nil), set.Include...), set.Exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	skipAbs := make([]string, 0, len(skip))
	for _, s := range skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(s); err == nil {
			skipAbs = append(skipAbs, abs)
		}
	}

	fsys := os.DirFS(base)
	seen := make(map[string]struct{})
	var files []File
	for _, pattern := range set.Include {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if excluded(rel, set.Exclude) {
				continue
			}
			abs := filepath.Join(base, filepath.FromSlash(rel))
			if under(abs, skipAbs) {
				continue
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			files = append(files, File{Path: abs, Base: base, Compile: compile})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(p), rel); ok {
			return true
		}
	}
	return false
}

func under(path string, dirs []string) bool {
	for _, dir := range dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Inputs collects sources and libraries for the manifest. Sources compile by
// default; libraries are copied only unless [libraries].compile is set.
func (m *Manifest) Inputs() (libraries, sources []File, err error) {
	skip := []string{m.OutputRoot(), m.ScratchRoot()}
	if len(m.Config.Libraries.Include) > 0 {
		libraries, err = Collect(m.Root, m.Config.Libraries, false, skip...)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: [libraries]: %w", m.Path, err)
		}
	}
	if len(m.Config.Sources.Include) > 0 {
		sources, err = Collect(m.Root, m.Config.Sources, true, skip...)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: [sources]: %w", m.Path, err)
		}
	}
	return libraries, sources, nil
}

// WatchDirs lists the directories a watcher should observe: every include
// base plus the manifest's own directory.
func (m *Manifest) WatchDirs() []string {
	dirs := map[string]struct{}{m.Root: {}}
	for _, set := range []FileSet{m.Config.Libraries, m.Config.Sources} {
		if len(set.Include) == 0 {
			continue
		}
		base := m.Root
		if b := strings.TrimSpace(set.Base); b != "" {
			base = m.resolve(b)
		}
		dirs[base] = struct{}{}
	}
	out := make([]string, 0, len(dirs))
	for d := range dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
