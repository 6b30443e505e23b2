package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindProjectRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot: ok=%v err=%v", ok, err)
	}
	want, _ := filepath.EvalSymlinks(root)
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != want {
		t.Fatalf("root = %q, want %q", got, root)
	}
}

func TestFindManifestSkipsDirectoryWithManifestName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "")
	nested := filepath.Join(root, "pkg")
	if err := os.MkdirAll(filepath.Join(nested, ManifestName), 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	if filepath.Dir(got) != root {
		t.Fatalf("manifest = %q, want one in %q", got, root)
	}
}

func TestAncestorsEndAtRoot(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator), "a", "b")
	got := ancestors(dir)
	want := []string{dir, filepath.Dir(dir), string(filepath.Separator)}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ancestors = %v, want %v", got, want)
	}
}

func TestReadManifestValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing build", "[compiler]\ncommand = \"c\"\n", "missing [build]"},
		{"missing out", "[build]\njobs = 2\n[compiler]\ncommand = \"c\"\n", "missing [build].out"},
		{"missing compiler", "[build]\nout = \"o\"\n[sources]\ninclude = [\"*.ts\"]\n", "missing [compiler]"},
		{"empty command", "[build]\nout = \"o\"\n[compiler]\ncommand = \" \"\n", "missing [compiler].command"},
		{"no inputs", "[build]\nout = \"o\"\n[compiler]\ncommand = \"c\"\n", "missing [sources]"},
		{"no include", "[build]\nout = \"o\"\n[compiler]\ncommand = \"c\"\n[sources]\nbase = \"src\"\n", "missing [sources].include"},
		{"negative jobs", "[build]\nout = \"o\"\njobs = -1\n[compiler]\ncommand = \"c\"\n", "jobs must not be negative"},
		{"unknown key", "[build]\nout = \"o\"\nbogus = 1\n[compiler]\ncommand = \"c\"\n[sources]\ninclude = [\"*\"]\n", "unknown key build.bogus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tc.content)
			_, err := ReadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestStarterManifestIsValid(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ManifestName)
	writeFile(t, path, StarterManifest("mycc"))

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Config.Compiler.Command != "mycc" {
		t.Fatalf("command = %q", m.Config.Compiler.Command)
	}
	if m.OutputRoot() != filepath.Join(m.Root, "build") {
		t.Fatalf("output root = %q", m.OutputRoot())
	}
	if m.ScratchRoot() != "" || m.LintResults() != "" {
		t.Fatalf("unexpected optional paths: %q %q", m.ScratchRoot(), m.LintResults())
	}
	if m.Banner() != DefaultBanner {
		t.Fatalf("banner = %d", m.Banner())
	}
	if m.Config.Libraries.Compile == nil || *m.Config.Libraries.Compile {
		t.Fatalf("libraries.compile = %v", m.Config.Libraries.Compile)
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"src/a.ts",
		"src/nested/b.ts",
		"src/nested/types.d.ts",
		"src/readme.md",
		"build/src/stale.ts",
	} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(p)), "x")
	}

	set := FileSet{Include: []string{"**/*.ts", "a.ts"}, Exclude: []string{"**/*.d.ts"}, Base: "src"}
	files, err := Collect(root, set, true, filepath.Join(root, "build"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel())
		if !f.Compile {
			t.Errorf("%s: compile = false", f.Path)
		}
		if f.Base != filepath.Join(root, "src") {
			t.Errorf("%s: base = %q", f.Path, f.Base)
		}
	}
	if got := strings.Join(rels, ","); got != "a.ts,nested/b.ts" {
		t.Fatalf("files = %s", got)
	}
}

func TestCollectSkipsOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "x.js"), "x")
	writeFile(t, filepath.Join(root, "out", "lib", "x.js"), "x")

	off := false
	files, err := Collect(root, FileSet{Include: []string{"**/*.js"}, Compile: &off}, true, filepath.Join(root, "out"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(files) != 1 || files[0].Rel() != "lib/x.js" || files[0].Compile {
		t.Fatalf("files = %+v", files)
	}
}

func TestCollectRejectsBadPattern(t *testing.T) {
	if _, err := Collect(t.TempDir(), FileSet{Include: []string{"src/[a"}}, true); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}

func TestManifestInputsAndWatchDirs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ManifestName)
	writeFile(t, path, StarterManifest(""))
	writeFile(t, filepath.Join(root, "src", "main.ts"), "x")
	writeFile(t, filepath.Join(root, "src", "ui", "view.ts"), "x")
	writeFile(t, filepath.Join(root, "src", "types.d.ts"), "x")
	writeFile(t, filepath.Join(root, "lib", "vendor.js"), "x")

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	libs, srcs, err := m.Inputs()
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(libs) != 1 || libs[0].Compile || libs[0].Rel() != "lib/vendor.js" {
		t.Fatalf("libraries = %+v", libs)
	}
	if len(srcs) != 2 || !srcs[0].Compile || srcs[0].Rel() != "main.ts" || srcs[1].Rel() != "ui/view.ts" {
		t.Fatalf("sources = %+v", srcs)
	}

	dirs := m.WatchDirs()
	want := []string{m.Root, filepath.Join(m.Root, "src")}
	if strings.Join(dirs, "|") != strings.Join(want, "|") {
		t.Fatalf("watch dirs = %v, want %v", dirs, want)
	}
}
