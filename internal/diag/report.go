package diag

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

const (
	startGlyph = "▼"
	stopGlyph  = "▲"
)

// Report renders a buffered group of messages between two banner lines.
type Report struct {
	// Width is the number of terminal cells each banner spans. Zero disables banners.
	Width int
	// Color paints banners when true regardless of terminal detection.
	Color bool
}

func (r Report) banner(glyph string, attr color.Attribute) string {
	if r.Width <= 0 {
		return ""
	}
	cell := runewidth.StringWidth(glyph)
	if cell < 1 {
		cell = 1
	}
	n := r.Width / cell
	if n < 1 {
		n = 1
	}
	line := strings.Repeat(glyph, n)
	c := color.New(attr)
	if r.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(line) + "\n"
}

// Render returns the report text, or "" when there is nothing to report.
func (r Report) Render(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.banner(startGlyph, color.FgRed))
	b.WriteByte('\n')
	b.WriteString(strings.Join(entries, "\n"))
	b.WriteByte('\n')
	b.WriteString(r.banner(stopGlyph, color.FgRed))
	return b.String()
}

// Write renders entries to w. Nothing is written for an empty report.
func (r Report) Write(w io.Writer, entries []string) error {
	if w == nil {
		return nil
	}
	text := r.Render(entries)
	if text == "" {
		return nil
	}
	_, err := io.WriteString(w, text)
	return err
}
