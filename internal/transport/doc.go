// Package transport delivers board updates to the client through one of two
// interchangeable channels.
//
// # Overview
//
// Both strategies implement Channel and push the same two signals into a Sink:
// board.Update values and State changes. Everything downstream (dispatch,
// connectivity indicator) is transport-agnostic.
//
//	┌───────────────┐   HandleUpdate   ┌──────────┐
//	│ PollingChannel│ ───────────────→ │          │
//	│      or       │                  │   Sink   │
//	│  PushChannel  │ ───────────────→ │          │
//	└───────────────┘   HandleStatus   └──────────┘
//
// # Polling
//
// PollingChannel reports Open immediately and calls GET /api/check-updates/
// every 5 seconds. A failed check flips the state to Closed; the timer keeps
// running and the next success flips it back. A tick that fires while the
// previous check is still outstanding is skipped, so there is never more than
// one request in flight.
//
// # Push
//
// PushChannel dials ws(s)://host/ws/board/. Once Open a HeartbeatMonitor
// writes {"type":"ping"} every 30 seconds; a failed ping drops the connection
// and redials immediately. Reconnect policy:
//
//	event                    state         next attempt
//	dial failed              Closed        +5s
//	peer close / read error  Closed        +3s
//	heartbeat write failed   Reconnecting  now
//
// Retries never stop and the delays never grow. Exactly one retry is pending
// at any time.
//
// # Cancellation
//
// Close stops every timer the channel owns, cancels the context used by
// in-flight requests and dials, and marks the channel closed under its lock so
// results that arrive afterwards are discarded. Sink methods run while the
// channel lock is held and must not call back into the channel.
//
// # Testing
//
// All delays go through clock.Clock. Tests use clock.Fake to advance time
// and fake Dialer/Conn or UpdateChecker implementations.
package transport
