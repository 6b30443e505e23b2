package pathtrack

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizedPath is a path reduced to a separator-independent form:
// NFC, forward slashes, and the drive letter (if any) split off.
type NormalizedPath struct {
	Drive string // "C:" or ""
	Path  string // forward-slash form without drive
}

// Normalize converts a concrete filesystem path into its NormalizedPath.
func Normalize(p string) NormalizedPath {
	p = nfc(p)
	p = strings.ReplaceAll(p, `\`, "/")
	var drive string
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		drive = strings.ToUpper(p[:2])
		p = p[2:]
	}
	return NormalizedPath{Drive: drive, Path: p}
}

// String returns the forward-slash form including the drive letter.
func (n NormalizedPath) String() string {
	return n.Drive + n.Path
}

// Equal reports whether two paths name the same location regardless of
// separator style or drive prefix.
func (n NormalizedPath) Equal(other NormalizedPath) bool {
	return n.Path == other.Path
}

// IsZero reports whether the path is empty.
func (n NormalizedPath) IsZero() bool {
	return n.Path == "" && n.Drive == ""
}

// Pattern builds a matcher recognizing this path inside arbitrary text.
func (n NormalizedPath) Pattern() *Pattern {
	var b strings.Builder
	if strings.HasPrefix(n.Path, "/") || n.Drive != "" {
		b.WriteString(`(?:[A-Za-z]:)?`)
	}
	parts := strings.Split(n.Path, "/")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(`[\\/]`)
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	return &Pattern{
		source: n,
		re:     regexp.MustCompile(b.String()),
	}
}

// Pattern matches one NormalizedPath as a whole token.
type Pattern struct {
	source NormalizedPath
	re     *regexp.Regexp
}

// NewPattern is shorthand for Normalize(p).Pattern().
func NewPattern(p string) *Pattern {
	return Normalize(p).Pattern()
}

// Source returns the path the pattern was derived from.
func (p *Pattern) Source() NormalizedPath {
	return p.source
}

// String returns the underlying regular expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// MatchString reports whether text contains at least one bounded occurrence.
func (p *Pattern) MatchString(text string) bool {
	_, _, ok := p.next(nfc(text), 0)
	return ok
}

// ReplaceAll replaces every bounded occurrence of the path in text with repl.
// repl is inserted literally.
func (p *Pattern) ReplaceAll(text, repl string) string {
	if p == nil || p.source.Path == "" {
		return text
	}
	text = nfc(text)
	var (
		b    strings.Builder
		last int
		pos  int
		hit  bool
	)
	for pos <= len(text) {
		start, end, ok := p.next(text, pos)
		if !ok {
			break
		}
		hit = true
		b.WriteString(text[last:start])
		b.WriteString(repl)
		last = end
		pos = end
		if end == start {
			pos++
		}
	}
	if !hit {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// next finds the first bounded match at or after pos.
func (p *Pattern) next(text string, pos int) (start, end int, ok bool) {
	for pos <= len(text) {
		loc := p.re.FindStringIndex(text[pos:])
		if loc == nil {
			return 0, 0, false
		}
		start, end = pos+loc[0], pos+loc[1]
		if leftBounded(text, start) && rightBounded(text, end) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			size = 1
		}
		pos = start + size
	}
	return 0, 0, false
}

func leftBounded(text string, start int) bool {
	if start == 0 {
		return true
	}
	if afterFileScheme(text, start) {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isPathRune(r) && r != '.'
}

// afterFileScheme reports whether the match at start is the path of a file
// URL: "file:///tmp/a.js", or "file:///C:/a.js" when the match has a drive.
func afterFileScheme(text string, start int) bool {
	const scheme = "file://"
	if start >= len(scheme) && strings.EqualFold(text[start-len(scheme):start], scheme) {
		return true
	}
	drive := start+1 < len(text) && text[start+1] == ':'
	return drive && start >= len(scheme)+1 && text[start-1] == '/' &&
		strings.EqualFold(text[start-len(scheme)-1:start-1], scheme)
}

func rightBounded(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, size := utf8.DecodeRuneInString(text[end:])
	if r == '.' {
		// "a.js." ends a sentence, "a.js.map" is another file
		if end+size >= len(text) {
			return true
		}
		after, _ := utf8.DecodeRuneInString(text[end+size:])
		return !isWordRune(after)
	}
	if r == '/' || r == '\\' {
		// a trailing separator still names the directory: "/tmp/build/"
		if end+size >= len(text) {
			return true
		}
		after, _ := utf8.DecodeRuneInString(text[end+size:])
		return !isPathRune(after) && after != '.'
	}
	return !isPathRune(r)
}

func isPathRune(r rune) bool {
	return isWordRune(r) || r == '/' || r == '\\' || r == '-'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func nfc(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
