package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/boardsync/internal/transport"
)

// renderHeader renders the status bar: logo, connectivity, view, session and
// the time of the last page load.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	snap := m.snapshot

	ind := snap.Indicator
	if ind.Text == "" {
		ind = Present(snap.Connection)
	}
	label := ind.Label()
	if snap.Connection == transport.Connecting || snap.Connection == transport.Reconnecting {
		label = m.spinner.View() + " " + ind.Text
	}

	parts := []string{
		styles.Logo.Render("boardsync"),
		styles.ToneStyle(ind.Tone).Render(label),
	}
	if snap.View != "" {
		parts = append(parts, styles.MutedText.Render("view")+styles.Text.Render(" "+snap.View))
	}
	if snap.SessionID != "" {
		parts = append(parts, styles.MutedText.Render("session")+styles.FaintText.Render(" "+truncate(snap.SessionID, 8)))
	}
	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, styles.MutedText.Render(ts))
	}
	if snap.IsOffline() {
		parts = append(parts, styles.DangerText.Render("OFFLINE"))
	}

	return styles.Header.Width(m.width).Render(m.join(parts, "  "))
}

// renderToast shows the latest notification while it is fresh, otherwise the
// last page refresh error.
func (m Model) renderToast() string {
	styles := m.theme.Styles()
	if n, ok := m.snapshot.LatestNotification(); ok && m.now().Sub(n.At) < toastTTL {
		return styles.LevelStyle(n.Level).Render(" " + truncate(n.Message, max(m.width-2, 0)))
	}
	if err := m.snapshot.LastError; err != nil {
		return styles.WarningText.Render(" " + truncate("refresh failed: "+err.Error(), max(m.width-2, 0)))
	}
	return ""
}

// renderCommandBar renders the key hints, or the delete prompt while one is open.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)

	if m.confirmDelete != "" {
		prompt := styles.DangerText.Render(fmt.Sprintf("Delete post #%s?", m.confirmDelete)) +
			m.sep(" ") + styles.AccentText.Render("y") + styles.MutedText.Render("/") + styles.AccentText.Render("n")
		return styles.Header.Width(m.width).Render(prompt)
	}

	bindings := m.keys.ShortHelp()
	segments := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		h := b.Help()
		segments = append(segments, styles.AccentText.Render(h.Key)+m.sep(":")+styles.MutedText.Render(h.Desc))
	}
	segments = append(segments, styles.AccentText.Render("T")+m.sep(":")+styles.FaintText.Render(m.theme.Name))

	return styles.Header.Width(m.width).Render(m.join(segments, "  "))
}

func (m Model) formatTimestamp() string {
	last := m.snapshot.LastUpdated
	if last.IsZero() {
		return ""
	}
	since := m.now().Sub(last)
	ts := last.Format("15:04:05")
	switch {
	case since < time.Minute:
		return ts + " (now)"
	case since < time.Hour:
		return fmt.Sprintf("%s (%dm ago)", ts, int(since.Minutes()))
	default:
		return ts
	}
}

// sep renders a separator with the bar background so styled segments do not
// leave gaps.
func (m Model) sep(s string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Surface)).Render(s)
}

func (m Model) join(parts []string, sep string) string {
	return strings.Join(parts, m.sep(sep))
}

// truncate shortens s to limit runes with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
