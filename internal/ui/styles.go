package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/model"
)

var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorFailure   = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorInfo      = lipgloss.Color("#3B82F6")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorBorder    = lipgloss.Color("#374151")
	ColorHighlight = lipgloss.Color("#1F2937")

	StylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleFailure = lipgloss.NewStyle().Foreground(ColorFailure)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold    = lipgloss.NewStyle().Bold(true)
)

// StatusIcon renders a one-cell marker for a run, job or step. A status
// that is not finished wins over the conclusion, which is still empty then.
func StatusIcon(status model.RunStatus, conclusion model.RunConclusion) string {
	switch status {
	case model.RunStatusInProgress:
		return StyleInfo.Render("*")
	case model.RunStatusQueued, model.RunStatusWaiting, model.RunStatusPending, model.RunStatusRequested:
		return StyleMuted.Render("o")
	}
	switch conclusion {
	case model.ConclusionSuccess:
		return StyleSuccess.Render("V")
	case model.ConclusionFailure, model.ConclusionTimedOut:
		return StyleFailure.Render("X")
	case model.ConclusionCancelled:
		return StyleWarning.Render("!")
	case model.ConclusionSkipped, model.ConclusionNeutral:
		return StyleMuted.Render("-")
	case model.ConclusionActionRequired:
		return StyleWarning.Render("?")
	default:
		return StyleMuted.Render("?")
	}
}

// Legend explains the icons in one line.
func Legend() string {
	return StatusIcon(model.RunStatusCompleted, model.ConclusionSuccess) + "=pass " +
		StatusIcon(model.RunStatusCompleted, model.ConclusionFailure) + "=fail " +
		StatusIcon(model.RunStatusCompleted, model.ConclusionCancelled) + "=cancel " +
		StatusIcon(model.RunStatusInProgress, model.ConclusionNone) + "=run " +
		StatusIcon(model.RunStatusQueued, model.ConclusionNone) + "=queued"
}
