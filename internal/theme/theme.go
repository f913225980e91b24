// Package theme holds the colors and lipgloss styles shared by every view.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// statusColors maps each derived status to its badge color.
var statusColors = map[model.TaskStatus]lipgloss.AdaptiveColor{
	model.StatusTodo:  ColorBlue,
	model.StatusDoing: ColorYellow,
	model.StatusDone:  ColorGreen,
}

// Frame.
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorBlue).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorSubtle).
			Padding(0, 1)

	// PanelStyle boxes full-page content such as help.
	PanelStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle)

	TabStyle       = lipgloss.NewStyle().Foreground(ColorGray).Padding(0, 1)
	ActiveTabStyle = TabStyle.Bold(true).Underline(true).Foreground(ColorWhite)
)

// Rows.
var (
	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)

	// SelectedItemStyle marks the cursor row with a left rule.
	SelectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Bold(true).
				Foreground(ColorBlue).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(ColorBlue)

	DimmedStyle  = lipgloss.NewStyle().Foreground(ColorGray)
	DueDateStyle = lipgloss.NewStyle().Foreground(ColorMagenta)
	OverdueStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	NoticeStyle  = lipgloss.NewStyle().Italic(true).Foreground(ColorYellow)
)

// StatusStyle returns the badge style for a task status; unknown values
// render gray.
func StatusStyle(status model.TaskStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if c, ok := statusColors[status]; ok {
		return base.Foreground(c)
	}
	return base.Foreground(ColorGray)
}
