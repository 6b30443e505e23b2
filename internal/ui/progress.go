package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rewind/internal/buildpipeline"
)

type rowState uint8

const (
	rowQueued rowState = iota
	rowRunning
	rowCompiled
	rowCached
	rowFailed
)

func (s rowState) finished() bool { return s >= rowCompiled }

// buildRow is one compiled file as shown in the view.
type buildRow struct {
	file    string
	state   rowState
	stage   buildpipeline.Stage
	elapsed time.Duration
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

type buildView struct {
	title   string
	events  <-chan buildpipeline.Event
	spin    spinner.Model
	bar     progress.Model
	rows    []buildRow
	byFile  map[string]int
	phases  []buildpipeline.Stage // running, in start order
	width   int
	height  int
	done    bool
	aborted bool
}

type pipelineEvent buildpipeline.Event
type eventsClosed struct{}

// NewProgressModel returns a Bubble Tea model listing every compiled file
// with its state, fed by the pipeline's progress events. The model quits when
// events is closed or on ctrl+c.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = runningStyle

	v := &buildView{
		title:  title,
		events: events,
		spin:   spin,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		rows:   make([]buildRow, 0, len(files)),
		byFile: make(map[string]int, len(files)),
		width:  80,
	}
	for _, f := range files {
		v.row(f)
	}
	v.bar.Width = v.width - 24
	return v
}

// Aborted reports whether the user left the view with ctrl+c.
func Aborted(model tea.Model) bool {
	v, ok := model.(*buildView)
	return ok && v.aborted
}

func (v *buildView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.next())
}

func (v *buildView) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-v.events
		if !ok {
			return eventsClosed{}
		}
		return pipelineEvent(ev)
	}
}

func (v *buildView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pipelineEvent:
		return v, tea.Batch(v.apply(buildpipeline.Event(msg)), v.next())
	case eventsClosed:
		v.done = true
		return v, tea.Quit
	case tea.KeyMsg:
		if msg.Type != tea.KeyCtrlC {
			return v, nil
		}
		v.aborted = true
		return v, tea.Quit
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.bar.Width = max(10, msg.Width-24)
		return v, nil
	case spinner.TickMsg:
		if v.done {
			return v, nil
		}
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return v, cmd
	case progress.FrameMsg:
		bar, cmd := v.bar.Update(msg)
		v.bar = bar.(progress.Model)
		return v, cmd
	}
	return v, nil
}

func (v *buildView) row(file string) int {
	if i, ok := v.byFile[file]; ok {
		return i
	}
	v.rows = append(v.rows, buildRow{file: file})
	v.byFile[file] = len(v.rows) - 1
	return len(v.rows) - 1
}

// apply folds one event into the view and returns the bar animation.
func (v *buildView) apply(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		v.trackPhase(ev)
		return nil
	}
	r := &v.rows[v.row(ev.File)]
	r.stage = ev.Stage
	switch ev.Status {
	case buildpipeline.StatusQueued:
		r.state = rowQueued
	case buildpipeline.StatusWorking:
		r.state = rowRunning
	case buildpipeline.StatusDone:
		r.state = rowCompiled
		r.elapsed = ev.Elapsed
	case buildpipeline.StatusCached:
		r.state = rowCached
	case buildpipeline.StatusError:
		r.state = rowFailed
		r.elapsed = ev.Elapsed
	}
	return v.bar.SetPercent(v.fraction())
}

func (v *buildView) fraction() float64 {
	if len(v.rows) == 0 {
		return 0
	}
	finished := 0
	for _, r := range v.rows {
		if r.state.finished() {
			finished++
		}
	}
	return float64(finished) / float64(len(v.rows))
}

func (v *buildView) counts() (finished, cached, failed int) {
	for _, r := range v.rows {
		switch r.state {
		case rowCached:
			cached++
		case rowFailed:
			failed++
		}
		if r.state.finished() {
			finished++
		}
	}
	return finished, cached, failed
}

// visible picks the rows worth showing when the terminal is short: running
// and failed files first, then the rest in build order.
func (v *buildView) visible() []buildRow {
	limit := len(v.rows)
	if v.height > 0 {
		limit = max(3, v.height-5)
	}
	if limit >= len(v.rows) {
		return v.rows
	}
	out := make([]buildRow, 0, limit)
	for _, want := range []func(buildRow) bool{
		func(r buildRow) bool { return r.state == rowRunning || r.state == rowFailed },
		func(r buildRow) bool { return r.state != rowRunning && r.state != rowFailed },
	} {
		for _, r := range v.rows {
			if len(out) == limit {
				return out
			}
			if want(r) {
				out = append(out, r)
			}
		}
	}
	return out
}

func (v *buildView) View() string {
	if len(v.rows) == 0 {
		return ""
	}
	var b strings.Builder
	lead := v.spin.View()
	if v.done {
		lead = okStyle.Render("✓")
	}
	header := v.title
	if label := v.phaseLabels(); label != "" && !v.done {
		header += " " + mutedStyle.Render(label)
	}
	fmt.Fprintf(&b, "%s %s\n\n", lead, headerStyle.Render(header))

	nameWidth := max(20, v.width-22)
	shown := v.visible()
	for _, r := range shown {
		state := stateLabel(r.state)
		fmt.Fprintf(&b, "  %s %s", stateStyle(r.state).Render(fmt.Sprintf("%-9s", state)), clip(r.file, nameWidth))
		if r.elapsed > 0 {
			b.WriteString(mutedStyle.Render(" " + r.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteByte('\n')
	}
	if hidden := len(v.rows) - len(shown); hidden > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  +%d more\n", hidden)))
	}

	finished, cached, failed := v.counts()
	b.WriteByte('\n')
	if v.done {
		b.WriteString(v.bar.ViewAs(1))
	} else {
		b.WriteString(v.bar.View())
	}
	fmt.Fprintf(&b, " %d/%d", finished, len(v.rows))
	if cached > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" %d cached", cached)))
	}
	if failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(" %d failed", failed)))
	}
	b.WriteByte('\n')
	return b.String()
}

// trackPhase keeps the set of pipeline stages that have started and not yet
// finished; lint runs beside compile and reporting beside the map rewrite.
func (v *buildView) trackPhase(ev buildpipeline.Event) {
	i := slices.Index(v.phases, ev.Stage)
	switch ev.Status {
	case buildpipeline.StatusWorking:
		if i < 0 {
			v.phases = append(v.phases, ev.Stage)
		}
	case buildpipeline.StatusDone, buildpipeline.StatusError:
		if i >= 0 {
			v.phases = slices.Delete(v.phases, i, i+1)
		}
	}
}

func (v *buildView) phaseLabels() string {
	labels := make([]string, 0, len(v.phases))
	for _, stage := range v.phases {
		if label := phaseLabel(stage); label != "" {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}

func phaseLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageLibraries:
		return "staging libraries"
	case buildpipeline.StageSources:
		return "collecting sources"
	case buildpipeline.StageLint:
		return "reporting lint"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageReport:
		return "reporting"
	case buildpipeline.StageMaps:
		return "rewriting maps"
	}
	return ""
}

func stateLabel(s rowState) string {
	switch s {
	case rowRunning:
		return "compiling"
	case rowCompiled:
		return "ok"
	case rowCached:
		return "cached"
	case rowFailed:
		return "failed"
	}
	return "queued"
}

func stateStyle(s rowState) lipgloss.Style {
	switch s {
	case rowRunning:
		return runningStyle
	case rowCompiled, rowCached:
		return okStyle
	case rowFailed:
		return failStyle
	}
	return mutedStyle
}

// clip shortens a path from the left so the file name stays visible.
func clip(path string, width int) string {
	if width <= 0 || runewidth.StringWidth(path) <= width {
		return path
	}
	if width <= 3 {
		return runewidth.Truncate(path, width, "")
	}
	rs := []rune(path)
	for i := range rs {
		if runewidth.StringWidth(string(rs[i:])) <= width-3 {
			return "..." + string(rs[i:])
		}
	}
	return "..."
}
