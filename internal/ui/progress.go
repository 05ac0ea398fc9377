// Package ui renders live progress of a check run in the terminal.
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

	"numstamp/internal/check"
)

// maxRows bounds the job list; finished jobs scroll off the top first.
const maxRows = 16

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	widthStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = map[check.Status]lipgloss.Style{
		check.StatusQueued:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		check.StatusWorking: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		check.StatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		check.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

type progressModel struct {
	title   string
	events  <-chan check.Event
	spinner spinner.Model
	bar     progress.Model
	jobs    []jobRow
	byName  map[string]int
	widths  []string // type suffixes in first-seen order, "i8", "f64"
	width   int
	done    bool

	finished, cases, violations int
}

type jobRow struct {
	name       string
	typ        string
	status     check.Status
	cases      int
	violations int
	elapsed    time.Duration
}

func (r jobRow) finished() bool {
	return r.status == check.StatusDone || r.status == check.StatusFailed
}

type eventMsg check.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders check progress.
// jobs lists the job names in plan order, such as "add/i32"; the model
// quits when events is closed.
func NewProgressModel(title string, jobs []string, events <-chan check.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle[check.StatusWorking]

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		jobs:    make([]jobRow, 0, len(jobs)),
		byName:  make(map[string]int, len(jobs)),
		width:   80,
	}
	for i, name := range jobs {
		typ := jobType(name)
		if typ != "" && !slices.Contains(m.widths, typ) {
			m.widths = append(m.widths, typ)
		}
		m.jobs = append(m.jobs, jobRow{name: name, typ: typ, status: check.StatusQueued})
		m.byName[name] = i
	}
	return m
}

// jobType returns the operand type of a job name: "i32" for "add/i32" and
// "i8" for "zeroextend/i8->i16".
func jobType(name string) string {
	_, typ, ok := strings.Cut(name, "/")
	if !ok {
		return ""
	}
	typ, _, _ = strings.Cut(typ, "->")
	return typ
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(check.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.jobs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header()))
	b.WriteString("\n")
	if tally := m.tally(); tally != "" {
		b.WriteString(widthStyle.Render(tally))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	nameWidth := max(m.width-24, 20)
	for _, row := range m.visible() {
		b.WriteString(m.row(row, nameWidth))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) header() string {
	h := fmt.Sprintf("%s (%d/%d jobs, %d cases)", m.title, m.finished, len(m.jobs), m.cases)
	if m.violations > 0 {
		h += fmt.Sprintf(", %d violations", m.violations)
	}
	if m.done {
		return "done: " + h
	}
	return m.spinner.View() + " " + h
}

// tally shows finished over planned jobs for each operand type.
func (m *progressModel) tally() string {
	if len(m.widths) < 2 {
		return ""
	}
	parts := make([]string, 0, len(m.widths))
	for _, typ := range m.widths {
		var done, total int
		for _, row := range m.jobs {
			if row.typ != typ {
				continue
			}
			total++
			if row.finished() {
				done++
			}
		}
		parts = append(parts, fmt.Sprintf("%s %d/%d", typ, done, total))
	}
	return "  " + strings.Join(parts, "  ")
}

func (m *progressModel) row(r jobRow, nameWidth int) string {
	line := fmt.Sprintf("  %s %s", statusStyle[r.status].Render(fmt.Sprintf("%8s", r.status)), truncate(r.name, nameWidth))
	if r.finished() {
		line += fmt.Sprintf("  %d", r.cases)
	}
	if r.violations > 0 {
		line += fmt.Sprintf(" (%d violations)", r.violations)
	}
	if r.elapsed > 0 {
		line += "  " + r.elapsed.Round(time.Millisecond/10).String()
	}
	return line
}

// visible picks the rows to draw: running and failed jobs first, then the
// queue, then finished jobs.
func (m *progressModel) visible() []jobRow {
	if len(m.jobs) <= maxRows {
		return m.jobs
	}
	rank := func(s check.Status) int {
		switch s {
		case check.StatusWorking, check.StatusFailed:
			return 0
		case check.StatusQueued:
			return 1
		}
		return 2
	}
	rows := slices.Clone(m.jobs)
	slices.SortStableFunc(rows, func(a, b jobRow) int { return rank(a.status) - rank(b.status) })
	return rows[:maxRows]
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev check.Event) tea.Cmd {
	idx, ok := m.byName[ev.Job]
	if !ok {
		return nil
	}
	row := &m.jobs[idx]
	row.status = ev.Status
	if !row.finished() {
		return nil
	}
	row.cases = ev.Cases
	row.violations = ev.Violations
	row.elapsed = ev.Elapsed
	m.finished++
	m.cases += ev.Cases
	m.violations += ev.Violations
	return m.bar.SetPercent(float64(m.finished) / float64(len(m.jobs)))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// The tail counts towards width.
	return runewidth.Truncate(value, width, "...")
}
