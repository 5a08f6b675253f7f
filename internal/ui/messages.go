package ui

import (
	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/selection"
)

// Core events forwarded into the program.

type RunsStateMsg struct {
	State     listloader.State[model.Run]
	RateLimit api.RateLimit
}

type JobsMsg struct {
	selection.JobsUpdate
}

type LogMsg struct {
	selection.LogUpdate
}

// RunMsg carries a refreshed snapshot of the selected run.
type RunMsg struct {
	Run model.Run
}

// Action result messages
type ActionResultMsg struct {
	Action  string
	Run     model.Run
	Success bool
	Err     error
}

type StatusMsg struct {
	Text string
}
