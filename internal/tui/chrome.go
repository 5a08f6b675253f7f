package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/config"
	"github.com/altinukshini/gha-watch/internal/ui"
)

var (
	headerBg = ui.ColorHighlight
	statusBg = lipgloss.Color("#111827")
	titleFg  = lipgloss.Color("#F9FAFB")
)

// RenderHeader draws the top row: repository and active filters on the
// left, remaining API quota on the right.
func RenderHeader(repo string, f config.Filters, rl api.RateLimit, now time.Time, width int) string {
	left := lipgloss.NewStyle().Bold(true).Foreground(titleFg).Render(" gha-watch | " + repo)
	if s := filterSummary(f); s != "" {
		left += ui.StyleMuted.Render("  " + s)
	}
	return bar(left, rateSegment(rl, now), headerBg, width)
}

// RenderStatusBar draws the bottom row. A failed status is shown in the
// failure color.
func RenderStatusBar(status string, failed bool, hints string, width int) string {
	style := ui.StyleMuted
	if failed {
		style = ui.StyleFailure
	}
	return bar(style.Render("  "+status), ui.StyleMuted.Render(hints+" "), statusBg, width)
}

func bar(left, right string, bg lipgloss.Color, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Background(bg).
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func filterSummary(f config.Filters) string {
	var parts []string
	for _, kv := range [][2]string{
		{"workflow", f.Workflow},
		{"branch", f.Branch},
		{"status", f.Status},
		{"actor", f.Actor},
		{"event", f.Event},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+":"+kv[1])
		}
	}
	return strings.Join(parts, " ")
}

// rateSegment is empty until a response carried quota headers.
func rateSegment(rl api.RateLimit, now time.Time) string {
	if rl.Limit <= 0 {
		return ""
	}
	color := ui.ColorSuccess
	switch {
	case rl.Remaining < 100:
		color = ui.ColorFailure
	case rl.Remaining < 500:
		color = ui.ColorWarning
	}
	text := fmt.Sprintf("API %d/%d", rl.Remaining, rl.Limit)
	if rl.Reset > 0 {
		if left := time.Unix(rl.Reset, 0).Sub(now); left > 0 {
			text += ", resets in " + left.Round(time.Minute).String()
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(text + " ")
}
