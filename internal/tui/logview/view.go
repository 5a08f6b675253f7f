package logview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/ui"
)

// Model shows the segmented log of one job. Refreshes of a live job keep
// the scroll position, or stay at the bottom when following.
type Model struct {
	viewport viewport.Model
	jobID    int64
	job      model.Job
	content  string
	width    int
	height   int
	ready    bool
	pending  bool
	err      error

	searchInput textinput.Model
	searching   bool
	searchQuery string
	matchLines  []int // 0-based line indices of matches
	matchIndex  int
}

func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Search in log..."
	ti.CharLimit = 256
	return Model{searchInput: ti}
}

// SetJob switches to jobID and clears whatever was shown.
func (m *Model) SetJob(jobID int64) {
	m.jobID = jobID
	m.job = model.Job{}
	m.content = ""
	m.pending = true
	m.err = nil
	m.searchQuery = ""
	m.matchLines = nil
	m.matchIndex = 0
	if m.ready {
		m.viewport.SetContent("")
		m.viewport.GotoTop()
	}
}

func (m Model) JobID() int64 {
	return m.jobID
}

// SetLog applies an update for the shown job. Pending updates only show a
// marker while nothing is loaded; a failed refresh keeps the old text.
func (m *Model) SetLog(l model.JobLog, err error, pending bool) {
	m.pending = pending && m.content == ""
	if pending {
		return
	}
	m.err = err
	if err != nil {
		return
	}
	m.job = l.Job
	m.updateContent(l.Text)
}

func (m *Model) updateContent(content string) {
	first := m.content == ""
	m.content = content
	if m.searchQuery != "" {
		m.findMatches()
	}
	if !m.ready {
		return
	}

	wasAtBottom := m.viewport.AtBottom()
	prevOffset := m.viewport.YOffset
	m.viewport.SetContent(m.applyHighlights())

	switch {
	case first:
		m.viewport.GotoTop()
	case wasAtBottom:
		m.viewport.GotoBottom()
	default:
		m.viewport.SetYOffset(prevOffset)
	}
}

// Live reports whether the job can still produce output.
func (m Model) Live() bool {
	return m.job.ID != 0 && !m.job.Status.Terminal()
}

func (m Model) IsSearching() bool {
	return m.searching
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			switch msg.String() {
			case "enter":
				if query := m.searchInput.Value(); query != "" {
					m.searchQuery = query
					m.findMatches()
					m.viewport.SetContent(m.applyHighlights())
					if len(m.matchLines) > 0 {
						m.matchIndex = 0
						m.viewport.SetYOffset(m.matchLines[0])
					}
				}
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			case "esc":
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "/":
			m.searching = true
			m.searchInput.SetValue("")
			m.searchInput.Focus()
			return m, textinput.Blink
		case "n", "N":
			if n := len(m.matchLines); n > 0 {
				step := 1
				if msg.String() == "N" {
					step = n - 1
				}
				m.matchIndex = (m.matchIndex + step) % n
				m.viewport.SetContent(m.applyHighlights())
				m.viewport.SetYOffset(m.matchLines[m.matchIndex])
			}
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
			m.viewport.SetContent(m.applyHighlights())
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) findMatches() {
	m.matchLines = nil
	if m.searchQuery == "" || m.content == "" {
		return
	}
	query := strings.ToLower(m.searchQuery)
	for i, line := range strings.Split(m.content, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			m.matchLines = append(m.matchLines, i)
		}
	}
	if m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m Model) applyHighlights() string {
	if len(m.matchLines) == 0 {
		return m.content
	}
	highlight := lipgloss.NewStyle().Background(ui.ColorBorder)
	current := lipgloss.NewStyle().Background(lipgloss.Color("#92400E")).Bold(true)

	lines := strings.Split(m.content, "\n")
	for n, idx := range m.matchLines {
		if n == m.matchIndex {
			lines[idx] = current.Render(lines[idx])
		} else {
			lines[idx] = highlight.Render(lines[idx])
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if m.jobID == 0 {
		return "\n  Select a job to view logs"
	}
	if m.pending {
		return "\n  Loading logs..."
	}
	if m.err != nil && m.content == "" {
		return fmt.Sprintf("\n  Error: %v", m.err)
	}

	name := m.job.Name
	if m.Live() {
		name += ui.StyleSuccess.Bold(true).Render(" [LIVE]")
	}
	title := fmt.Sprintf(" %s  %3.f%%", name, m.viewport.ScrollPercent()*100)
	switch {
	case m.searchQuery != "" && len(m.matchLines) > 0:
		title += fmt.Sprintf("  [%d/%d matches]", m.matchIndex+1, len(m.matchLines))
	case m.searchQuery != "":
		title += "  [no matches]"
	}
	if m.err != nil {
		title += ui.StyleFailure.Render("  refresh failed")
	}
	header := ui.StyleBold.Render(title)

	second := ""
	if m.searching {
		second = "  /" + m.searchInput.View()
	} else if m.content == "" {
		second = ui.StyleMuted.Render("  No output yet")
	}
	return header + "\n" + second + "\n" + m.viewport.View()
}
