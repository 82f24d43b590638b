// Package logtail reads the tail of boardsync's own log file and parses its
// slog records for the diagnostics pane.
//
// # Overview
//
// The TUI owns the terminal, so the sync layer logs to a file. The
// diagnostics pane re-reads the last lines of that file on every refresh
// tick and renders them with level colors.
//
// # Reading Log Files
//
// Read keeps a ring buffer of maxLines entries while scanning the file once:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// Memory is O(maxLines), independent of file size. A missing file yields
// nil, nil; the log may not exist yet on first start.
//
// # Parsing
//
// Parse understands both slog handlers the app can be configured with:
//
//	time=2024-10-10T14:32:15Z level=WARN msg="check-updates failed" component=polling failures=2
//	{"time":"2024-10-10T14:32:15Z","level":"WARN","msg":"check-updates failed","component":"polling"}
//
// Lines in any other shape (a panic trace, output from an older version) are
// returned with Raw set so the pane still shows them.
//
// Filter drops records below a level, backing the pane's level toggle.
package logtail
