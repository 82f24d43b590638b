package ui

import (
	"fmt"
	"strings"

	"github.com/five82/boardsync/internal/board"
)

// row is one selectable reaction owner on the current page.
type row struct {
	TargetType board.TargetType
	ID         string
	Title      string
}

// boardRows lists linked posts first, then any other entity that carries
// reaction buttons (the open post and its comments on a detail page).
func boardRows(page board.Page) []row {
	seen := make(map[string]bool)
	var rows []row
	add := func(r row) {
		k := string(r.TargetType) + "/" + r.ID
		if seen[k] {
			return
		}
		seen[k] = true
		rows = append(rows, r)
	}

	current := board.PostID(page.Path)
	for _, rc := range page.Reactions {
		if rc.TargetType == board.TargetPost && rc.TargetID == current {
			add(row{TargetType: board.TargetPost, ID: current, Title: page.Title})
		}
	}
	for _, p := range page.Posts {
		title := p.Title
		if title == "" {
			title = "post #" + p.ID
		}
		add(row{TargetType: board.TargetPost, ID: p.ID, Title: title})
	}
	for _, rc := range page.Reactions {
		add(row{
			TargetType: rc.TargetType,
			ID:         rc.TargetID,
			Title:      fmt.Sprintf("%s #%s", rc.TargetType, rc.TargetID),
		})
	}
	return rows
}

// renderBoard renders the page title and the selectable rows, scrolled so the
// selection stays visible.
func (m Model) renderBoard(height int) string {
	styles := m.theme.Styles()
	snap := m.snapshot

	if !snap.HasPage {
		if snap.LastError != nil {
			return styles.DangerText.Render(" Board unreachable") + "\n" +
				styles.MutedText.Render(" "+truncate(snap.LastError.Error(), max(m.width-2, 0)))
		}
		return styles.MutedText.Render(" Loading board...")
	}

	lines := make([]string, 0, height)
	title := snap.Page.Title
	if title == "" {
		title = snap.Page.Path
	}
	lines = append(lines, styles.AccentText.Bold(true).Render(" "+truncate(title, max(m.width-2, 0))))

	rows := m.rows()
	if len(rows) == 0 {
		lines = append(lines, styles.FaintText.Render(" Nothing here yet."))
		return strings.Join(lines, "\n")
	}

	visible := max(height-1, 1)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(start+visible, len(rows))
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r row, selected bool) string {
	styles := m.theme.Styles()

	var counts []string
	for _, rc := range m.snapshot.Reactions {
		if rc.TargetType != r.TargetType || rc.TargetID != r.ID {
			continue
		}
		text := fmt.Sprintf("%s %d", rc.Reaction, rc.Count)
		if rc.Active {
			counts = append(counts, styles.SuccessText.Render("●"+text))
		} else {
			counts = append(counts, styles.MutedText.Render(" "+text))
		}
	}

	cursor := "  "
	if selected {
		cursor = "▸ "
	}
	titleWidth := max(m.width-30, 10)
	line := cursor + truncate(r.Title, titleWidth)
	if selected {
		line = styles.Selected.Render(line)
	} else {
		line = styles.Text.Render(line)
	}
	if len(counts) > 0 {
		line += "  " + strings.Join(counts, " ")
	}
	return line
}
