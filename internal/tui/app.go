package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/config"
	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/selection"
	"github.com/altinukshini/gha-watch/internal/tui/confirm"
	"github.com/altinukshini/gha-watch/internal/tui/details"
	"github.com/altinukshini/gha-watch/internal/tui/logview"
	"github.com/altinukshini/gha-watch/internal/tui/runs"
	"github.com/altinukshini/gha-watch/internal/ui"
)

const actionTimeout = 30 * time.Second

type Pane int

const (
	PaneLeft Pane = iota
	PaneMiddle
)

// Actions are the run mutations offered in the UI.
type Actions interface {
	CancelRun(ctx context.Context, run model.Run) error
	RerunRun(ctx context.Context, run model.Run) error
}

// App is the terminal front end. It never touches core state directly:
// every operation is posted to the coordination loop and results come back
// as messages through Attach.
type App struct {
	cfg     config.Config
	orch    *selection.Orchestrator
	actions Actions
	post    func(func())

	runsView      runs.Model
	detailsView   details.Model
	logView       logview.Model
	confirmDialog confirm.Model

	focusedPane   Pane
	width         int
	height        int
	status        string
	statusFailed  bool
	rate          api.RateLimit
	showHelp      bool
	logFullScreen bool
}

func NewApp(cfg config.Config, loop *coord.Loop, orch *selection.Orchestrator, actions Actions) App {
	return App{
		cfg:         cfg,
		orch:        orch,
		actions:     actions,
		post:        func(fn func()) { loop.Post(fn) },
		runsView:    runs.New(),
		detailsView: details.New(),
		logView:     logview.New(),
		focusedPane: PaneLeft,
		status:      "Loading runs...",
	}
}

func (a App) Init() tea.Cmd {
	orch := a.orch
	a.post(func() {
		orch.Runs().SetActive(true)
		orch.Runs().LoadMore(false)
	})
	return nil
}

// setPolling suspends run list polling while the list is hidden.
func (a App) setPolling(active bool) {
	orch := a.orch
	a.post(func() { orch.Runs().SetActive(active) })
}

func (a *App) selectRun(run model.Run) {
	orch, k := a.orch, run.Key()
	a.runsView.SetSelected(k)
	a.detailsView.SetRun(run)
	a.focusedPane = PaneMiddle
	a.post(func() { orch.SelectRun(k) })
}

func (a *App) selectJob(job model.Job) {
	orch, id := a.orch, job.ID
	a.logView.SetJob(id)
	a.logFullScreen = true
	a.post(func() { orch.SelectJob(id) })
	a.setPolling(false)
}

func (a *App) closeLog() {
	a.logFullScreen = false
	a.setPolling(true)
}

// currentRun is the run the focused pane points at.
func (a App) currentRun() *model.Run {
	if a.focusedPane == PaneMiddle || a.logFullScreen {
		return a.detailsView.Run()
	}
	return a.runsView.CurrentRun()
}

func (a *App) setStatus(text string, failed bool) {
	a.status = text
	a.statusFailed = failed
}

func (a *App) askAction(action confirm.Action) {
	run := a.currentRun()
	if run == nil {
		return
	}
	switch {
	case action == confirm.ActionCancel && run.Status.Terminal():
		a.setStatus(fmt.Sprintf("Run #%d has already finished", run.RunNumber), false)
	case action == confirm.ActionRerun && !run.Status.Terminal():
		a.setStatus(fmt.Sprintf("Run #%d is still running", run.RunNumber), false)
	default:
		a.confirmDialog = confirm.ForRun(action, *run)
	}
}

func (a App) runAction(action confirm.Action, run model.Run) tea.Cmd {
	actions := a.actions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		var err error
		switch action {
		case confirm.ActionCancel:
			err = actions.CancelRun(ctx, run)
		case confirm.ActionRerun:
			err = actions.RerunRun(ctx, run)
		}
		return ui.ActionResultMsg{Action: string(action), Run: run, Success: err == nil, Err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.propagateSize()
		return &a, nil

	case ui.RunsStateMsg:
		cmd := a.runsView.SetState(msg.State)
		if msg.RateLimit.Limit > 0 {
			a.rate = msg.RateLimit
		}
		a.setStatus(a.runsView.Summary(), msg.State.Err != nil)
		return &a, cmd

	case runs.NeedNextPageMsg:
		orch := a.orch
		a.post(func() { orch.Runs().LoadMore(false) })
		return &a, nil

	case ui.RunMsg:
		if run := a.detailsView.Run(); run != nil && run.Key() == msg.Run.Key() {
			a.detailsView.SetRun(msg.Run)
		}
		return &a, nil

	case ui.JobsMsg:
		if run := a.detailsView.Run(); run != nil && run.SameAttempt(msg.Run) {
			a.detailsView.SetJobs(msg.Jobs, msg.Err, msg.Pending)
		}
		return &a, nil

	case ui.LogMsg:
		if msg.JobID == a.logView.JobID() {
			a.logView.SetLog(msg.Log, msg.Err, msg.Pending)
		}
		return &a, nil

	case confirm.ResultMsg:
		if !msg.Confirmed {
			return &a, nil
		}
		a.setStatus(fmt.Sprintf("Requesting %s of run #%d...", msg.Action, msg.Run.RunNumber), false)
		return &a, a.runAction(msg.Action, msg.Run)

	case ui.ActionResultMsg:
		if !msg.Success {
			a.setStatus(fmt.Sprintf("%s failed: %v", msg.Action, msg.Err), true)
			return &a, nil
		}
		a.setStatus(fmt.Sprintf("%s of run #%d requested", msg.Action, msg.Run.RunNumber), false)
		orch, run := a.orch, msg.Run
		a.post(func() { orch.AfterAction(run) })
		return &a, nil

	case ui.StatusMsg:
		a.setStatus(msg.Text, false)
		return &a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return &a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if a.confirmDialog.IsActive() {
		a.confirmDialog, cmd = a.confirmDialog.Update(msg)
		return &a, cmd
	}
	if a.showHelp {
		a.showHelp = false
		return &a, nil
	}

	if a.logFullScreen {
		if a.logView.IsSearching() {
			a.logView, cmd = a.logView.Update(msg)
			return &a, cmd
		}
		switch {
		case key.Matches(msg, ui.Keys.Back):
			a.closeLog()
			return &a, nil
		case key.Matches(msg, ui.Keys.Quit):
			return &a, tea.Quit
		case key.Matches(msg, ui.Keys.Cancel):
			a.askAction(confirm.ActionCancel)
			return &a, nil
		case key.Matches(msg, ui.Keys.Rerun):
			a.askAction(confirm.ActionRerun)
			return &a, nil
		}
		a.logView, cmd = a.logView.Update(msg)
		return &a, cmd
	}

	if a.focusedPane == PaneLeft && a.runsView.IsFiltering() {
		a.runsView, cmd = a.runsView.Update(msg)
		return &a, cmd
	}

	switch {
	case key.Matches(msg, ui.Keys.Quit):
		return &a, tea.Quit
	case key.Matches(msg, ui.Keys.Help):
		a.showHelp = true
		return &a, nil
	case key.Matches(msg, ui.Keys.Tab), key.Matches(msg, ui.Keys.ShiftTab):
		if a.focusedPane == PaneLeft {
			a.focusedPane = PaneMiddle
		} else {
			a.focusedPane = PaneLeft
		}
		return &a, nil
	case key.Matches(msg, ui.Keys.Back):
		a.focusedPane = PaneLeft
		return &a, nil
	case key.Matches(msg, ui.Keys.Reset):
		orch := a.orch
		a.post(func() { orch.ResetAllData() })
		a.setStatus("Reloading everything...", false)
		return &a, nil
	case key.Matches(msg, ui.Keys.Cancel):
		a.askAction(confirm.ActionCancel)
		return &a, nil
	case key.Matches(msg, ui.Keys.Rerun):
		a.askAction(confirm.ActionRerun)
		return &a, nil
	case key.Matches(msg, ui.Keys.Enter):
		if a.focusedPane == PaneLeft {
			if run := a.runsView.CurrentRun(); run != nil {
				a.selectRun(*run)
			}
		} else if job := a.detailsView.SelectedJob(); job != nil {
			a.selectJob(*job)
		}
		return &a, nil
	}

	if a.focusedPane == PaneLeft {
		a.runsView, cmd = a.runsView.Update(msg)
	} else {
		a.detailsView, cmd = a.detailsView.Update(msg)
	}
	return &a, cmd
}

func (a *App) propagateSize() {
	// header(1) + status(1) + pane borders(2)
	contentH := max(a.height-4, 1)

	leftW := a.width * 45 / 100
	midW := max(a.width-leftW-4, 1)

	a.runsView, _ = a.runsView.Update(tea.WindowSizeMsg{Width: leftW, Height: contentH})
	a.detailsView, _ = a.detailsView.Update(tea.WindowSizeMsg{Width: midW, Height: contentH})
	a.logView, _ = a.logView.Update(tea.WindowSizeMsg{Width: a.width - 4, Height: contentH})
}

// --- View ---

func (a App) View() string {
	header := RenderHeader(a.cfg.RepoNWO(), a.cfg.Filters, a.rate, time.Now(), a.width)

	var content string
	switch {
	case a.showHelp:
		content = a.renderHelp()
	case a.confirmDialog.IsActive():
		content = a.confirmDialog.View()
	default:
		content = a.renderPanes()
	}

	statusBar := RenderStatusBar(a.status, a.statusFailed, a.contextHints(), a.width)

	// Hard clamp: content never overflows the terminal.
	if maxLines := a.height - 2; maxLines > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > maxLines {
			content = strings.Join(lines[:maxLines], "\n")
		}
	}
	return header + "\n" + content + "\n" + statusBar
}

func (a App) renderPanes() string {
	contentH := max(a.height-4, 1)

	if a.logFullScreen {
		return ui.StylePaneFocused.Width(a.width - 2).Height(contentH).Render(a.logView.View())
	}

	leftW := a.width * 45 / 100
	midW := max(a.width-leftW-4, 1)

	leftStyle := ui.StylePane.Width(leftW).Height(contentH)
	midStyle := ui.StylePane.Width(midW).Height(contentH)
	if a.focusedPane == PaneLeft {
		leftStyle = ui.StylePaneFocused.Width(leftW).Height(contentH)
	} else {
		midStyle = ui.StylePaneFocused.Width(midW).Height(contentH)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Render(a.runsView.View()),
		midStyle.Render(a.detailsView.View()))
}

func (a App) contextHints() string {
	if a.logFullScreen {
		if a.logView.IsSearching() {
			return "enter:confirm  esc:cancel"
		}
		return "/:search  n/N:match  j/k:scroll  g/G:top/bot  C:cancel  R:rerun  esc:back"
	}
	if a.focusedPane == PaneLeft {
		return ui.Legend() + "  |  enter:jobs  f:filter  r:reload  C:cancel  R:rerun  ?:help"
	}
	return ui.Legend() + "  |  enter:view log  j/k:navigate  tab:pane  ?:help  esc:back"
}

func (a App) renderHelp() string {
	contentH := max(a.height-4, 1)

	keyStyle := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Width(14)
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))
	row := func(k, d string) string {
		return "  " + keyStyle.Render(k) + desc.Render(d) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n" + ui.StyleBold.Render("  Navigation") + "\n\n")
	b.WriteString(row("tab", "Switch pane"))
	b.WriteString(row("esc", "Back / close log view"))
	b.WriteString(row("j / k", "Move down / up (down at the end loads more runs)"))
	b.WriteString(row("enter", "Select run / open job log"))
	b.WriteString(row("q", "Quit"))

	b.WriteString("\n" + ui.StyleBold.Render("  Runs") + "\n\n")
	b.WriteString(row("f", "Filter loaded runs"))
	b.WriteString(row("r", "Drop all cached data and reload"))
	b.WriteString(row("C", "Cancel run"))
	b.WriteString(row("R", "Re-run finished run"))

	b.WriteString("\n" + ui.StyleBold.Render("  Log Viewer") + "\n\n")
	b.WriteString(row("/", "Search in log"))
	b.WriteString(row("n / N", "Next / previous match"))
	b.WriteString(row("g / G", "Go to top / bottom"))
	b.WriteString(row("PgUp/PgDn", "Page up / page down"))

	b.WriteString("\n" + ui.StyleMuted.Render("  Press any key to close") + "\n")

	return ui.StylePaneFocused.Width(a.width - 2).Height(contentH).Render(b.String())
}
