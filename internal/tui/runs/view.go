package runs

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/ui"
)

// NeedNextPageMsg is emitted when the cursor is at the bottom and user presses down.
type NeedNextPageMsg struct{}

// --- Custom delegate (avoids DefaultDelegate ANSI corruption during filtering) ---

type runDelegate struct {
	selected *model.RunKey // run bound in the jobs pane
}

func (d runDelegate) Height() int                              { return 2 }
func (d runDelegate) Spacing() int                             { return 0 }
func (d runDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d runDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(runItem)
	if !ok {
		return
	}

	icon := ui.StatusIcon(ri.run.Status, ri.run.Conclusion)
	mark := " "
	if *d.selected == ri.run.Key() {
		mark = ui.StyleWarning.Render("●")
	}

	ago := ui.StyleMuted.Render(formatDuration(time.Since(ri.run.CreatedAt).Truncate(time.Minute)) + " ago")
	branch := ui.StyleInfo.Render(ri.run.HeadBranch)
	wfName := ui.StyleMuted.Render(ri.run.Name)
	attempt := ""
	if ri.run.RunAttempt > 1 {
		attempt = ui.StyleMuted.Render(fmt.Sprintf(" (attempt %d)", ri.run.RunAttempt))
	}

	line1 := fmt.Sprintf(" %s%s #%d%s %s  %s  %s", mark, icon, ri.run.RunNumber, attempt, branch, ago, wfName)
	line2 := fmt.Sprintf("    %s", ri.run.DisplayTitle)

	if index == m.Index() {
		hl := lipgloss.NewStyle().Background(ui.ColorHighlight).Width(m.Width())
		line1 = hl.Render(line1)
		line2 = hl.Render(line2)
	}

	fmt.Fprintf(w, "%s\n%s", line1, line2)
}

// --- Item ---

type runItem struct {
	run model.Run
}

func (r runItem) FilterValue() string {
	return r.run.Name + " " + r.run.DisplayTitle + " " + r.run.HeadBranch + " " + r.run.Actor.Login
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// --- Model ---

type Model struct {
	list       list.Model
	runs       []model.Run
	selected   *model.RunKey
	totalCount int
	width      int
	height     int
	loading    bool
	err        error
}

func New() Model {
	sel := new(model.RunKey)
	l := list.New(nil, runDelegate{selected: sel}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowFilter(true)
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "next page"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "prev page"))
	l.DisableQuitKeybindings()

	return Model{
		list:       l,
		selected:   sel,
		totalCount: -1,
		loading:    true,
	}
}

// SetState shows a loader snapshot. The cursor stays on the run it was on,
// wherever polling moved it.
func (m *Model) SetState(s listloader.State[model.Run]) tea.Cmd {
	m.loading = s.Loading && len(s.Items) == 0
	m.err = s.Err
	m.totalCount = s.TotalCount

	var cur *model.RunKey
	if r := m.CurrentRun(); r != nil {
		k := r.Key()
		cur = &k
	}

	m.runs = s.Items
	items := make([]list.Item, len(s.Items))
	idx := 0
	for i, r := range s.Items {
		items[i] = runItem{run: r}
		if cur != nil && r.Key() == *cur {
			idx = i
		}
	}
	cmd := m.list.SetItems(items)
	if m.list.FilterState() == list.Unfiltered {
		m.list.Select(idx)
	}
	return cmd
}

// SetSelected marks the run bound in the jobs pane.
func (m *Model) SetSelected(k model.RunKey) {
	*m.selected = k
}

// CurrentRun is the run under the cursor.
func (m Model) CurrentRun() *model.Run {
	if item, ok := m.list.SelectedItem().(runItem); ok {
		return &item.run
	}
	return nil
}

func (m Model) Len() int {
	return len(m.runs)
}

// Summary describes how much of the list is loaded.
func (m Model) Summary() string {
	switch {
	case m.err != nil:
		return fmt.Sprintf("%d runs, last refresh failed: %v", len(m.runs), m.err)
	case m.totalCount < 0:
		return fmt.Sprintf("%d runs", len(m.runs))
	default:
		return fmt.Sprintf("%d/%d runs", len(m.runs), m.totalCount)
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The list can disable its filter binding (e.g. after SetSize with
		// zero items); re-enable it so 'f' always works.
		if msg.String() == "f" && !m.IsFiltering() && len(m.list.Items()) > 0 {
			m.list.KeyMap.Filter.SetEnabled(true)
		}

		if !m.IsFiltering() {
			isDown := msg.String() == "j" || msg.Type == tea.KeyDown
			if isDown && len(m.list.Items()) > 0 && m.list.Index() >= len(m.list.Items())-1 {
				return m, func() tea.Msg { return NeedNextPageMsg{} }
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading runs..."
	}
	if m.err != nil && len(m.runs) == 0 {
		return fmt.Sprintf("\n  Error: %v", m.err)
	}
	if len(m.runs) == 0 {
		return "\n  No runs"
	}
	return m.list.View()
}

func (m Model) IsFiltering() bool {
	return m.list.FilterState() == list.Filtering
}
