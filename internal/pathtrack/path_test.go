package pathtrack

import "testing"

func TestNormalizeSplitsDriveAndSeparators(t *testing.T) {
	cases := []struct {
		in        string
		wantDrive string
		wantPath  string
	}{
		{"/a/b.js", "", "/a/b.js"},
		{`C:\a\b.js`, "C:", "/a/b.js"},
		{`c:/a\b.js`, "C:", "/a/b.js"},
		{"rel/x.js", "", "rel/x.js"},
	}
	for _, tc := range cases {
		got := Normalize(tc.in)
		if got.Drive != tc.wantDrive || got.Path != tc.wantPath {
			t.Fatalf("Normalize(%q) = {%q %q}, want {%q %q}", tc.in, got.Drive, got.Path, tc.wantDrive, tc.wantPath)
		}
	}
	if !Normalize(`C:\a\b.js`).Equal(Normalize("/a/b.js")) {
		t.Fatalf("expected windows and posix forms to be equal")
	}
}

func TestNormalizeComposesUnicode(t *testing.T) {
	decomposed := "/tmp/cafe\u0301.js"
	composed := "/tmp/caf\u00e9.js"
	if !Normalize(decomposed).Equal(Normalize(composed)) {
		t.Fatalf("expected NFD and NFC spellings to be equal")
	}
	p := NewPattern(composed)
	if got := p.ReplaceAll("see "+decomposed, "/src/x.js"); got != "see /src/x.js" {
		t.Fatalf("ReplaceAll = %q", got)
	}
}

func TestPatternBoundaries(t *testing.T) {
	p := NewPattern("/a/b.js")
	cases := []struct {
		text string
		want string
	}{
		{"/a/b.js", "X"},
		{"/a/b.js:3:4: oops", "X:3:4: oops"},
		{"at (/a/b.js)", "at (X)"},
		{"Imported by /a/b.js.", "Imported by X."},
		{"/a/b.js.map", "/a/b.js.map"},
		{"/x/a/b.js", "/x/a/b.js"},
		{"/a/b.jsx", "/a/b.jsx"},
		{"/a/b.js-old", "/a/b.js-old"},
		{`\a\b.js`, "X"},
		{`C:\a\b.js`, "X"},
		{"/a/b.js and /a/b.js", "X and X"},
		{"\"/a/b.js\",\n\"/a/b.js.map\"", "\"X\",\n\"/a/b.js.map\""},
		{"file:///a/b.js", "file://X"},
		{"FILE:///a/b.js:1", "FILE://X:1"},
		{"file:///C:/a/b.js", "file:///X"},
		{"http:///a/b.js", "http:///a/b.js"},
		{"/a/b.js/c", "/a/b.js/c"},
	}
	for _, tc := range cases {
		if got := p.ReplaceAll(tc.text, "X"); got != tc.want {
			t.Errorf("ReplaceAll(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestPatternDirectoryWithTrailingSeparator(t *testing.T) {
	p := NewPattern("/tmp/build")
	cases := []struct {
		text string
		want string
	}{
		{"cd /tmp/build/ && ls", "cd X/ && ls"},
		{"out: /tmp/build/", "out: X/"},
		{`"C:\tmp\build\"`, `"X\"`},
		{"/tmp/build/a.js", "/tmp/build/a.js"},
		{"/tmp/build/.tmp", "/tmp/build/.tmp"},
	}
	for _, tc := range cases {
		if got := p.ReplaceAll(tc.text, "X"); got != tc.want {
			t.Errorf("ReplaceAll(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestPatternFromWindowsPathMatchesPosixText(t *testing.T) {
	p := NewPattern(`D:\build\out\a.js`)
	if got := p.ReplaceAll("/build/out/a.js:1:1: x", "/src/a.js"); got != "/src/a.js:1:1: x" {
		t.Fatalf("ReplaceAll = %q", got)
	}
	if got := p.ReplaceAll(`d:\build\out\a.js`, "/src/a.js"); got != "/src/a.js" {
		t.Fatalf("ReplaceAll = %q", got)
	}
}

func TestPatternMetaCharactersAreLiteral(t *testing.T) {
	p := NewPattern("/tmp/a+b (1)/[x].js")
	if !p.MatchString("error in /tmp/a+b (1)/[x].js") {
		t.Fatalf("expected literal match")
	}
	if p.MatchString("/tmp/aab (1)/x.js") {
		t.Fatalf("unexpected regexp interpretation")
	}
}

func TestEmptyPatternReplacesNothing(t *testing.T) {
	p := NewPattern("")
	if got := p.ReplaceAll("anything", "X"); got != "anything" {
		t.Fatalf("ReplaceAll = %q", got)
	}
}
