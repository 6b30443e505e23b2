// Package observ measures how long each build phase takes.
package observ

import (
	"fmt"
	"strings"
	"time"
)

type phase struct {
	name    string
	note    string
	started time.Time
	elapsed time.Duration
	open    bool
}

// Timer records build phases in the order they start. It is used from the
// goroutine that drives the pipeline and is not safe for concurrent use.
type Timer struct {
	phases []phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin starts the phase name and returns the function that ends it. The
// returned function records note, returns the phase duration and does
// nothing after its first call.
func (t *Timer) Begin(name string) func(note string) time.Duration {
	t.phases = append(t.phases, phase{name: name, started: time.Now(), open: true})
	i := len(t.phases) - 1
	return func(note string) time.Duration {
		p := &t.phases[i]
		if p.open {
			p.elapsed = time.Since(p.started)
			p.note = note
			p.open = false
		}
		return p.elapsed
	}
}

// PhaseReport is one finished phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report lists finished phases with their total.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the finished phases; phases still open are left out.
func (t *Timer) Report() Report {
	var r Report
	for _, p := range t.phases {
		if p.open {
			continue
		}
		ms := Millis(p.elapsed)
		r.Phases = append(r.Phases, PhaseReport{Name: p.name, DurationMS: ms, Note: p.note})
		r.TotalMS += ms
	}
	return r
}

// Lookup returns the phase called name.
func (r Report) Lookup(name string) (PhaseReport, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseReport{}, false
}

// Summary renders the report as an aligned table for --timings.
func (r Report) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&b, "  %-12s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(&b, "  (%s)", p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %9.2f ms\n", "total", r.TotalMS)
	return b.String()
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
