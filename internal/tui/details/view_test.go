package details

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/altinukshini/gha-watch/internal/model"
)

func sized() Model {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func TestJobsRefreshKeepsCursor(t *testing.T) {
	m := sized()
	m.SetRun(model.Run{ID: 1, RunAttempt: 1, Status: model.RunStatusInProgress})
	if !strings.Contains(m.View(), "Loading jobs") {
		t.Fatalf("expected loading view, got %q", m.View())
	}

	m.SetJobs([]model.Job{{ID: 1, Name: "lint"}, {ID: 2, Name: "build"}}, nil, false)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if j := m.SelectedJob(); j == nil || j.ID != 2 {
		t.Fatalf("expected job 2 under cursor, got %+v", j)
	}

	// A refresh that reorders and adds jobs keeps the cursor on job 2.
	m.SetJobs(nil, nil, true)
	m.SetJobs([]model.Job{{ID: 3, Name: "test"}, {ID: 2, Name: "build"}, {ID: 1, Name: "lint"}}, nil, false)
	if j := m.SelectedJob(); j == nil || j.ID != 2 {
		t.Fatalf("expected cursor to follow job 2, got %+v", j)
	}
	if !strings.Contains(m.View(), "build") {
		t.Errorf("expected job names in view:\n%s", m.View())
	}
}

func TestSetRunSwitchDropsJobs(t *testing.T) {
	m := sized()
	m.SetRun(model.Run{ID: 1, RunAttempt: 1})
	m.SetJobs([]model.Job{{ID: 1, Name: "lint"}}, nil, false)

	m.SetRun(model.Run{ID: 1, RunAttempt: 1, Status: model.RunStatusCompleted})
	if m.SelectedJob() == nil {
		t.Fatal("refreshing the same run should keep its jobs")
	}

	m.SetRun(model.Run{ID: 1, RunAttempt: 2})
	if m.SelectedJob() != nil {
		t.Fatal("a new attempt should drop the old jobs")
	}
}

func TestStepProgress(t *testing.T) {
	j := model.Job{
		Status: model.RunStatusInProgress,
		Steps: []model.Step{
			{Number: 1, Status: model.RunStatusCompleted},
			{Number: 2, Status: model.RunStatusInProgress},
			{Number: 3, Status: model.RunStatusQueued},
		},
	}
	if got := stepProgress(j); !strings.Contains(got, "1/3 steps") {
		t.Errorf("unexpected progress %q", got)
	}
}
