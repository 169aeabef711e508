package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/theme"
)

// Tab is one entry of the mailbox tab bar.
type Tab struct {
	Label string

	// Count is the number of messages, or -1 when unknown.
	Count int
}

// Layout manages the terminal layout dimensions: a header line, a tab
// bar, the content area and a status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	TabBarHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		TabBarHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.TabBarHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// fill pads the line to the full width using the background of style.
// With two parts the second one is pushed to the right edge.
func (l Layout) fill(style lipgloss.Style, left string, right ...string) string {
	used := lipgloss.Width(left)
	for _, r := range right {
		used += lipgloss.Width(r)
	}
	gap := max(l.Width-used, 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	line := []string{left, filler}
	line = append(line, right...)
	return lipgloss.JoinHorizontal(lipgloss.Top, line...)
}

// RenderHeader renders the top header bar with a title and the refresh
// status.
func (l Layout) RenderHeader(title string, status string) string {
	return l.fill(
		theme.HeaderStyle,
		theme.HeaderStyle.Render(title),
		theme.HeaderStyle.Align(lipgloss.Right).Render(status),
	)
}

// RenderTabs renders the mailbox tab bar with active highlighted.
func (l Layout) RenderTabs(tabs []Tab, active int) string {
	rendered := make([]string, 0, len(tabs))
	for i, t := range tabs {
		label := t.Label
		if t.Count >= 0 {
			label = fmt.Sprintf("%s (%d)", t.Label, t.Count)
		}
		if i == active {
			rendered = append(rendered, theme.ActiveTabStyle.Render(label))
		} else {
			rendered = append(rendered, theme.TabStyle.Render(label))
		}
	}

	bar := strings.Join(rendered, theme.DimmedStyle.Render("│"))
	if lipgloss.Width(bar) > l.Width && l.Width > 0 {
		bar = lipgloss.NewStyle().MaxWidth(l.Width).Render(bar)
	}
	return bar
}

// RenderStatusBar renders the bottom status bar. Errors use the error
// style so a lost connection stands out.
func (l Layout) RenderStatusBar(hints string, isError bool) string {
	style := theme.StatusBarStyle
	if isError {
		style = theme.ErrorBarStyle
	}
	return l.fill(style, style.Render(hints))
}

// RenderWithFrame composes the full terminal view.
func (l Layout) RenderWithFrame(header, tabs, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabs,
		content,
		statusBar,
	)
}
