package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/theme"
)

// Layout splits the terminal into a header, a category tab row, the active
// view and a status bar. Every bar is one line tall.
type Layout struct {
	Width  int
	Height int
}

const chromeLines = 3 // header + tabs + status bar

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the lines left for the active view, never negative.
func (l Layout) ContentHeight() int {
	return max(l.Height-chromeLines, 0)
}

// RenderHeader renders the title on the left and the status counts on the
// right of a full-width bar.
func (l Layout) RenderHeader(title, summary string) string {
	return l.bar(theme.HeaderStyle, title, summary)
}

// RenderTabs renders the category names, highlighting active. Tabs that do
// not fit are cut at the terminal edge.
func (l Layout) RenderTabs(names []string, active int) string {
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		style := theme.TabStyle
		if i == active {
			style = theme.ActiveTabStyle
		}
		b.WriteString(style.Render(n))
	}
	return lipgloss.NewStyle().MaxWidth(l.Width).Render(b.String())
}

// RenderStatusBar renders key hints or a notice across the bottom line.
func (l Layout) RenderStatusBar(hints string) string {
	return l.bar(theme.StatusBarStyle, hints, "")
}

// RenderWithFrame stacks the four regions.
func (l Layout) RenderWithFrame(header, tabs, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, statusBar)
}

// bar lays left and right out on one line of style's background, padding
// the middle so the bar spans the terminal.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	parts := []string{style.Render(left)}
	if right != "" {
		parts = append(parts, style.Render(right))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	filler := lipgloss.NewStyle().
		Width(max(l.Width-used, 0)).
		Background(style.GetBackground()).
		Render("")

	if len(parts) == 1 {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler, parts[1])
}
