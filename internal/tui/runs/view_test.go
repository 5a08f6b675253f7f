package runs

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/model"
)

func makeRuns(ids ...int64) []model.Run {
	runs := make([]model.Run, len(ids))
	for i, id := range ids {
		runs[i] = model.Run{
			ID: id, RunAttempt: 1, RunNumber: int(id) + 100,
			DisplayTitle: "Run", HeadBranch: "main",
			CreatedAt: time.Now(), Actor: model.Actor{Login: "user"},
		}
	}
	return runs
}

func loaded(runs []model.Run, total int) listloader.State[model.Run] {
	return listloader.State[model.Run]{Items: runs, TotalCount: total, Page: 1}
}

func TestFilterShowsAfterPressingF(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	runs := []model.Run{
		{ID: 1, RunNumber: 101, DisplayTitle: "Build", HeadBranch: "main", CreatedAt: time.Now(), Actor: model.Actor{Login: "user"}},
		{ID: 2, RunNumber: 102, DisplayTitle: "Test", HeadBranch: "dev", CreatedAt: time.Now(), Actor: model.Actor{Login: "user"}},
	}
	m.SetState(loaded(runs, 2))

	if len(m.list.Items()) != 2 {
		t.Fatalf("expected 2 items, got %d", len(m.list.Items()))
	}
	if m.list.FilterState() != list.Unfiltered {
		t.Fatalf("expected Unfiltered before pressing f, got %v", m.list.FilterState())
	}

	fKey := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}}
	m, cmd := m.Update(fKey)
	if cmd == nil {
		t.Error("expected non-nil cmd after pressing f (textinput.Blink)")
	}
	if !m.IsFiltering() {
		t.Fatal("IsFiltering() should return true")
	}
	if !strings.Contains(m.View(), "Filter") {
		t.Errorf("filter input should be in view after pressing f.\nView:\n%s", m.View())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.IsFiltering() {
		t.Error("should NOT be filtering after pressing esc")
	}
}

func TestRefreshKeepsCursorOnRun(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 40})
	m.SetState(loaded(makeRuns(10, 9, 8, 7, 6), 5))

	downKey := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	for i := 0; i < 2; i++ {
		m, _ = m.Update(downKey)
	}
	if got := m.CurrentRun(); got == nil || got.ID != 8 {
		t.Fatalf("expected cursor on run 8, got %+v", got)
	}

	// Polling merges a new run in at the end; the cursor stays on run 8.
	m.SetState(loaded(makeRuns(10, 9, 8, 7, 6, 11), 6))
	if got := m.CurrentRun(); got == nil || got.ID != 8 {
		t.Fatalf("expected cursor to stay on run 8, got %+v", got)
	}
}

func TestDownAtBottomAsksForNextPage(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 40})
	m.SetState(loaded(makeRuns(1, 2), 10))

	downKey := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	m, _ = m.Update(downKey)
	_, cmd := m.Update(downKey)
	if cmd == nil {
		t.Fatal("expected a command at the bottom of the list")
	}
	if _, ok := cmd().(NeedNextPageMsg); !ok {
		t.Fatal("expected NeedNextPageMsg")
	}
}

func TestLKeyDoesNotTriggerInternalPageNav(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 10})
	m.SetState(loaded(makeRuns(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12), 12))

	initialPage := m.list.Paginator.Page
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if m.list.Paginator.Page != initialPage {
		t.Errorf("pressing 'l' should not change internal page: was %d, now %d",
			initialPage, m.list.Paginator.Page)
	}
}

func TestSummary(t *testing.T) {
	m := New()
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading view, got %q", m.View())
	}

	m.SetState(listloader.State[model.Run]{Items: makeRuns(1, 2), TotalCount: -1})
	if got := m.Summary(); got != "2 runs" {
		t.Errorf("unexpected summary %q", got)
	}
	m.SetState(loaded(makeRuns(1, 2), 40))
	if got := m.Summary(); got != "2/40 runs" {
		t.Errorf("unexpected summary %q", got)
	}
}
