// Package state provides thread-safe state management for boardsync.
//
// # Overview
//
// This package implements a simple but thread-safe store for sharing the
// current board view between the sync layer and the terminal UI. It is the
// point where transport status, dispatched notifications, reaction counters
// and refreshed pages meet UI rendering.
//
// # Architecture
//
// The package follows a producer-consumer pattern:
//
//	Producers (sync layer):             Consumer (UI):
//	┌──────────────────────────┐       ┌──────────────────┐
//	│ channel  → SetConnection │       │                  │
//	│ presenter→ SetIndicator  │       │                  │
//	│ dispatch → Notify        │──────→│ store.Snapshot() │
//	│ refresh  → UpdatePage    │(mutex)│       ↓          │
//	│ reaction → SetReactions  │       │   render view    │
//	└──────────────────────────┘       └──────────────────┘
//
// Producers run on timer and I/O goroutines; the UI polls Snapshot on its own
// tick. The lock is held only while copying, never during network I/O.
//
// # Update Semantics
//
// UpdatePage keeps the last good page when a refresh fails and records the
// error, so the UI can keep showing content while reporting that the board is
// unreachable. Two failures in a row mark the snapshot offline.
//
// Notify appends to a bounded toast history; the view shows the latest one.
//
// # Defensive Copying
//
// Snapshot clones posts, reaction counters, notifications and the error value
// so callers can never mutate stored state.
//
// # Shared Vocabulary
//
// Level, Notification, Tone and Indicator live here so the dispatcher, the
// reaction controller and the UI agree on them without importing each other.
package state
