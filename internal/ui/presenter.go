package ui

import (
	"github.com/five82/boardsync/internal/state"
	"github.com/five82/boardsync/internal/transport"
)

// Present maps a connection state to the indicator shown in the header.
func Present(st transport.State) state.Indicator {
	switch st {
	case transport.Open:
		return state.Indicator{Glyph: "⟳", Text: "Live updates active", Tone: state.ToneSuccess}
	case transport.Closed:
		return state.Indicator{Glyph: "⚠", Text: "Checking for updates...", Tone: state.ToneWarning}
	case transport.Reconnecting:
		return state.Indicator{Glyph: "↻", Text: "Reconnecting...", Tone: state.ToneWarning}
	default:
		return state.Indicator{Glyph: "…", Text: "Connecting...", Tone: state.ToneMuted}
	}
}

// Surface is wherever the indicator is drawn. *state.Store implements it.
type Surface interface {
	SetIndicator(ind state.Indicator)
}

// Presenter pushes indicators to a surface. It keeps no state of its own; a
// nil Presenter or one without a surface ignores Show.
type Presenter struct {
	surface Surface
}

// NewPresenter returns a presenter drawing on surface.
func NewPresenter(surface Surface) *Presenter {
	return &Presenter{surface: surface}
}

// Show renders st.
func (p *Presenter) Show(st transport.State) {
	if p == nil || p.surface == nil {
		return
	}
	p.surface.SetIndicator(Present(st))
}
