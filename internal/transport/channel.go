package transport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/five82/boardsync/internal/board"
)

// State is the connectivity of a channel.
type State int

const (
	Connecting State = iota
	Open
	Closed
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel delivers board updates, by polling or over a push connection.
type Channel interface {
	// Open begins delivery. Calling Open more than once, or after Close, is a no-op.
	Open()
	// Close permanently stops delivery and cancels every owned timer. No Sink
	// method is called after Close returns.
	Close()
	// State returns the current connectivity.
	State() State
}

// Sink receives a channel's output. Calls are serialized per channel and must
// not call back into the channel.
type Sink interface {
	HandleUpdate(update board.Update)
	HandleStatus(state State)
}

// Timing defaults.
const (
	DefaultPollInterval      = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	PeerCloseReconnectDelay  = 3 * time.Second
	DialFailureRetryDelay    = 5 * time.Second
)

// Mode selects the transport strategy.
type Mode string

const (
	ModePolling Mode = "polling"
	ModePush    Mode = "push"
)

// ParseMode validates a configured transport name. Empty selects polling.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModePolling:
		return ModePolling, nil
	case ModePush, "websocket", "ws":
		return ModePush, nil
	}
	return "", fmt.Errorf("unknown transport %q (want polling or push)", raw)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
