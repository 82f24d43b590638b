// Package reaction implements the optimistic like/dislike toggle.
//
// # State Machine
//
// Every Target is Idle or Pending:
//
//	Idle ──Toggle──→ Pending ──reply ok──→ Idle (server values applied)
//	  ↑                 │
//	  └──reply failed───┘ (exact pre-toggle state restored, error toast)
//
// Toggle flips Active and moves Count by one before the request is sent, so
// the UI reacts immediately. A Toggle on a pending target is dropped.
//
// # Authority
//
// The server's reply always wins over the optimistic value:
//
//	count      count, else likes_count/dislikes_count, else optimistic
//	active     is_active, else action (added/changed → on, removed → off)
//	sibling    takes its server counter; turned off when this target is on
//
// Reconcile applies counters broadcast for other sessions. It never touches
// Active and skips pending targets.
//
// # Concurrency
//
// Requests run on their own goroutines with a context cancelled by Close.
// Listener and Notifier calls are made without the controller's lock held.
// Wait blocks until outstanding requests finish, which the CLI and tests use.
package reaction
