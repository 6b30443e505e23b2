package project

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ManifestName is the file that marks a project root.
const ManifestName = "rewind.toml"

// FindManifest looks for rewind.toml in startDir and then in each parent,
// nearest first. A directory that happens to carry the name is skipped.
func FindManifest(startDir string) (path string, ok bool, err error) {
	dir, err := filepath.Abs(cmp.Or(startDir, "."))
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", startDir, err)
	}
	for _, d := range ancestors(dir) {
		candidate := filepath.Join(d, ManifestName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.Mode().IsRegular():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("look for %s: %w", ManifestName, err)
		}
	}
	return "", false, nil
}

// ancestors lists dir and its parents up to the filesystem root.
func ancestors(dir string) []string {
	out := []string{dir}
	for parent := filepath.Dir(dir); parent != dir; parent = filepath.Dir(dir) {
		dir = parent
		out = append(out, dir)
	}
	return out
}

// FindProjectRoot is FindManifest reporting the manifest's directory.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if !ok {
		return "", false, err
	}
	return filepath.Dir(path), true, nil
}
