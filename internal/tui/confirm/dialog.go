package confirm

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/ui"
)

// Action is what the dialog asks the user to confirm.
type Action string

const (
	ActionCancel Action = "cancel"
	ActionRerun  Action = "rerun"
)

type ResultMsg struct {
	Confirmed bool
	Action    Action
	Run       model.Run
}

type Model struct {
	Title    string
	Message  string
	Action   Action
	Run      model.Run
	active   bool
	selected bool // true = confirm selected
}

// ForRun asks before applying action to run.
func ForRun(action Action, run model.Run) Model {
	title := "Cancel run?"
	if action == ActionRerun {
		title = "Re-run?"
	}
	return Model{
		Title:   title,
		Message: fmt.Sprintf("%s #%d on %s", run.Name, run.RunNumber, run.HeadBranch),
		Action:  action,
		Run:     run,
		active:  true,
	}
}

func (m Model) IsActive() bool { return m.active }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) result(confirmed bool) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Confirmed: confirmed, Action: m.Action, Run: m.Run}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			m.active = false
			return m, m.result(true)
		case "n", "N", "esc":
			m.active = false
			return m, m.result(false)
		case "enter":
			m.active = false
			return m, m.result(m.selected)
		case "tab", "left", "right", "h", "l":
			m.selected = !m.selected
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.active {
		return ""
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorWarning).
		Padding(1, 2).
		Width(50)

	title := ui.StyleWarning.Bold(true).Render(m.Title)

	yesStyle := lipgloss.NewStyle().Padding(0, 1)
	noStyle := lipgloss.NewStyle().Padding(0, 1)
	if m.selected {
		yesStyle = yesStyle.Bold(true).Background(ui.ColorSuccess).Foreground(lipgloss.Color("#F9FAFB"))
		noStyle = noStyle.Foreground(ui.ColorMuted)
	} else {
		yesStyle = yesStyle.Foreground(ui.ColorMuted)
		noStyle = noStyle.Bold(true).Background(ui.ColorFailure).Foreground(lipgloss.Color("#F9FAFB"))
	}

	content := fmt.Sprintf("%s\n\n%s\n\n%s  %s\n\ny/n to confirm, esc to cancel",
		title, m.Message,
		yesStyle.Render("Yes"), noStyle.Render("No"))
	return style.Render(content)
}
