package ui

import (
	"log/slog"
	"strings"
	"time"

	"github.com/five82/boardsync/internal/logtail"
)

// renderLogs renders the newest log records that fit in height.
func (m Model) renderLogs(height int) string {
	styles := m.theme.Styles()
	lines := make([]string, 0, height)

	title := "Diagnostics ≥ " + m.logLevel.String()
	if m.logPath != "" {
		title += "  " + m.logPath
	}
	lines = append(lines, styles.FaintText.Render(strings.Repeat("─", 2)+" "+truncate(title, max(m.width-4, 0))))

	switch {
	case m.logErr != nil:
		lines = append(lines, styles.DangerText.Render(" "+m.logErr.Error()))
	case len(m.logLines) == 0:
		lines = append(lines, styles.MutedText.Render(" No log records yet."))
	default:
		avail := max(height-1, 1)
		tail := m.logLines
		if len(tail) > avail {
			tail = tail[len(tail)-avail:]
		}
		for _, raw := range tail {
			lines = append(lines, m.renderLogLine(logtail.Parse(raw)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogLine(e logtail.Entry) string {
	styles := m.theme.Styles()
	width := max(m.width-1, 0)
	if e.Raw != "" {
		return styles.FaintText.Render(" " + truncate(e.Raw, width))
	}

	levelStyle := styles.InfoText
	switch {
	case e.Level >= slog.LevelError:
		levelStyle = styles.DangerText
	case e.Level >= slog.LevelWarn:
		levelStyle = styles.WarningText
	case e.Level < slog.LevelInfo:
		levelStyle = styles.FaintText
	}

	text := e.Message
	if e.Attrs != "" {
		text += " " + e.Attrs
	}
	return " " + styles.MutedText.Render(shortTime(e.Time)) + " " +
		levelStyle.Render(padLevel(e.Level)) + " " +
		styles.Text.Render(truncate(text, max(width-16, 10)))
}

// shortTime keeps the clock part of an RFC 3339 timestamp.
func shortTime(raw string) string {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Local().Format("15:04:05")
	}
	return truncate(raw, 8)
}

func padLevel(level slog.Level) string {
	s := level.String()
	if len(s) < 5 {
		s += strings.Repeat(" ", 5-len(s))
	}
	return s
}
