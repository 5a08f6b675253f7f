package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/selection"
	"github.com/altinukshini/gha-watch/internal/ui"
)

// Attach forwards core events to send, usually tea.Program.Send. It must be
// called on the coordination loop, and so must the returned detach func.
func Attach(orch *selection.Orchestrator, rate func() api.RateLimit, send func(tea.Msg)) (detach func()) {
	unsubs := []func(){
		orch.Runs().AddStateListener(func(s listloader.State[model.Run]) {
			send(ui.RunsStateMsg{State: s, RateLimit: rate()})
		}),
		orch.SubscribeJobs(func(u selection.JobsUpdate) {
			send(ui.JobsMsg{JobsUpdate: u})
		}),
		orch.SubscribeLog(func(u selection.LogUpdate) {
			send(ui.LogMsg{LogUpdate: u})
		}),
		orch.SubscribeRun(func(r model.Run) {
			send(ui.RunMsg{Run: r})
		}),
	}
	return func() {
		for _, fn := range unsubs {
			fn()
		}
	}
}
