// Package ui provides the boardsync terminal interface and the connectivity
// presenter.
//
// # Architecture Overview
//
// The view is a Bubble Tea program. It never talks to the board directly:
// it reads state.Snapshot values from the shared store on a short tick and
// calls back into the sync layer through the Actions interface. Anything that
// may block on the network (refresh, navigation, deletion) runs as a tea.Cmd,
// off the update loop; reaction toggles are applied optimistically by the
// controller and return immediately.
//
// # Package Structure
//
//   - presenter.go: Present maps a transport.State to a state.Indicator; the
//     Presenter writes it to a Surface (the store) and is a no-op without one
//   - model.go: Model, Init/Update/View, commands and Run
//   - header.go: status bar, notification toast and command bar
//   - board.go: the selectable rows of the current page with reaction counts
//   - diagnostics.go: log tail pane backed by internal/logtail
//   - keys.go, help.go: key bindings (bubbles/key) and the help overlay
//   - theme.go: color palettes and Lip Gloss styles
//
// # Key Bindings
//
//	j/k      move selection
//	l / d    toggle like / dislike on the selected row
//	enter    open the selected post
//	g        back to the board root
//	r        refresh the current page
//	x        delete the selected post (asks y/n)
//	L / F    toggle diagnostics / cycle its minimum level
//	T        cycle theme
//	?        help
//	q        quit
//
// # Indicator
//
//	Open          ⟳ Live updates active
//	Closed        ⚠ Checking for updates...
//	Connecting    … Connecting...      (spinner in the header)
//	Reconnecting  ↻ Reconnecting...    (spinner in the header)
package ui
