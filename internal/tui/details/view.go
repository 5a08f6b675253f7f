package details

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/ui"
)

// Model lists the jobs of the selected run. Jobs are refreshed in place
// while the run is live, so the cursor follows a job by id.
type Model struct {
	run      *model.Run
	jobs     []model.Job
	viewport viewport.Model
	cursor   int
	width    int
	height   int
	pending  bool
	ready    bool
	err      error
}

func New() Model {
	return Model{}
}

// SetRun switches to run. Jobs of another run or attempt are dropped; a
// refreshed snapshot of the same attempt keeps them.
func (m *Model) SetRun(run model.Run) {
	if m.run == nil || !m.run.SameAttempt(run) {
		m.jobs = nil
		m.cursor = 0
		m.err = nil
		m.pending = true
	}
	m.run = &run
	m.refresh()
}

func (m *Model) Clear() {
	m.run = nil
	m.jobs = nil
	m.cursor = 0
	m.err = nil
	m.pending = false
	m.refresh()
}

// SetJobs applies a job list update. A pending update only shows the
// loading marker when nothing has been loaded yet.
func (m *Model) SetJobs(jobs []model.Job, err error, pending bool) {
	m.pending = pending && len(m.jobs) == 0
	if pending {
		return
	}
	m.err = err
	if err != nil {
		return
	}

	var cur int64
	if j := m.SelectedJob(); j != nil {
		cur = j.ID
	}
	m.jobs = jobs
	m.cursor = 0
	for i, j := range jobs {
		if j.ID == cur {
			m.cursor = i
		}
	}
	m.refresh()
}

func (m Model) Run() *model.Run {
	return m.run
}

func (m Model) SelectedJob() *model.Job {
	if m.cursor >= 0 && m.cursor < len(m.jobs) {
		return &m.jobs[m.cursor]
	}
	return nil
}

func (m *Model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderJobs())
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, ui.Keys.Down):
			if m.cursor < len(m.jobs)-1 {
				m.cursor++
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, ui.Keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-1)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 1
		}
		m.viewport.SetContent(m.renderJobs())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) renderJobs() string {
	if len(m.jobs) == 0 {
		return "  No jobs"
	}

	highlight := ui.StyleBold.Background(ui.ColorHighlight)
	var b strings.Builder
	for i, j := range m.jobs {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%s %s  %s  %s",
			cursor, ui.StatusIcon(j.Status, j.Conclusion), j.Name,
			jobDuration(j), stepProgress(j))
		if i == m.cursor {
			line = highlight.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func jobDuration(j model.Job) string {
	if d := j.Duration(); d > 0 {
		return d.Truncate(time.Second).String()
	}
	if j.Status == model.RunStatusInProgress && !j.StartedAt.IsZero() {
		return time.Since(j.StartedAt).Truncate(time.Second).String() + "..."
	}
	return "-"
}

// stepProgress renders "done/total steps" for running jobs.
func stepProgress(j model.Job) string {
	if j.Status.Terminal() {
		return ui.StyleMuted.Render(fmt.Sprintf("%d steps", len(j.Steps)))
	}
	done := 0
	for _, s := range j.Steps {
		if s.Status.Terminal() {
			done++
		}
	}
	return ui.StyleInfo.Render(fmt.Sprintf("%d/%d steps", done, len(j.Steps)))
}

func (m Model) View() string {
	if m.run == nil {
		return "\n  Select a run"
	}
	if m.pending {
		return "\n  Loading jobs..."
	}
	if m.err != nil && len(m.jobs) == 0 {
		return fmt.Sprintf("\n  Error: %v", m.err)
	}

	header := fmt.Sprintf(" %s %s | %s | %s | attempt %d",
		ui.StatusIcon(m.run.Status, m.run.Conclusion),
		m.run.DisplayTitle,
		m.run.HeadBranch,
		m.run.Event,
		m.run.RunAttempt,
	)
	return ui.StyleBold.Render(header) + "\n" + m.viewport.View()
}
