package diag

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	importNotFoundRe = regexp.MustCompile(`Specified as (.*)\.\r?\nImported by \.{0,2}(.*)\.(?:\r?\n|$)`)
	commandFailedRe  = regexp.MustCompile(`(?m)^Error:\s*Command failed:\s*(.*)$`)
	bracketedErrorRe = regexp.MustCompile(`(?s)^\[Error:\s*(.*?)\s*\]$`)
	exitStatusRe     = regexp.MustCompile(`(?m)^exit status \d+\s*$`)
)

// FailureContext describes the compile invocation that produced a failure.
type FailureContext struct {
	SourcePath string // physical path handed to the compiler
	Cwd        string
	OutputBase string
}

// Classify turns raw compiler output into a Diagnostic. Paths in the result
// are still physical; callers rewrite them through the tracking registry.
func Classify(raw string, fc FailureContext) Diagnostic {
	if m := importNotFoundRe.FindStringSubmatch(raw); m != nil {
		specified := unquote(strings.TrimSpace(m[1]))
		filename := m[2] + ".js"
		var importer string
		if filepath.Join(fc.Cwd, filename) == filepath.Clean(fc.SourcePath) {
			importer = fc.SourcePath
		} else {
			importer = filepath.Join(fc.OutputBase, filename)
		}
		return New(SevError, CmpImportNotFound, importer, 0, 0, "Import not found: "+specified)
	}

	text := strings.TrimSpace(raw)
	text = commandFailedRe.ReplaceAllString(text, "$1")
	text = bracketedErrorRe.ReplaceAllString(text, "$1")
	text = exitStatusRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	if text == "" {
		text = fc.SourcePath + ": compilation failed"
	}
	return New(SevError, CmpFailed, "", 0, 0, text)
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
