// Package app wires boardsync together and runs it.
//
// # Overview
//
// Engine is the explicit context object of the sync layer. It owns the
// transport channel, the update dispatcher and the reaction controller for one
// board, and keeps a state.Store current for the terminal UI. Run is the
// composition root used by the watch command; Open builds an engine for the
// one-shot commands (react, delete) without starting a channel.
//
// # Data Flow
//
//	Run()
//	  ├─> LoadConfig()       config file + CLI overrides
//	  ├─> NewLogger()        slog to the log file
//	  ├─> Open()             board client, session, store, Engine
//	  ├─> Engine.Start()     open polling or push channel
//	  ├─> Engine.Refresh()   first page load
//	  └─> ui.Run()           TUI (blocks)
//
//	channel ──HandleUpdate──> dispatcher ──Notify──────> store
//	                                     ──Refresh─────> Engine.Refresh ─> store, controller.Seed
//	                                     ──Reconcile───> controller
//	channel ──HandleStatus──> store.SetConnection, Presenter.Show
//	controller ──ReactionChanged──> store.SetReactions
//
// # Refresh
//
// Page loads are serialized. A load whose view changed while it was in
// flight is discarded, and a failed load keeps the previous page and counts
// toward the offline indicator.
//
// # Shutdown
//
// Stop closes the channel (which reports a final Closed), cancels a pending
// delayed refresh and in-flight requests, then waits for reaction requests to
// unwind. It is idempotent.
package app
