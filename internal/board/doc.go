// Package board provides an HTTP client for the anonymous board API.
//
// # Overview
//
// This package defines the client the sync layer uses to talk to the board
// server. It handles HTTP communication, JSON serialization, the CSRF cookie
// handshake, and the type-safe representation of updates and reaction results.
//
// # Architecture
//
//   - client.go: HTTP client, cookie jar and request/response handling
//   - types.go: Update envelope, reaction and delete payloads, error types
//   - page.go: goquery-based parsing of rendered board pages
//
// # Client Usage
//
//	client, err := board.NewClient("https://board.example.com")
//	if err != nil {
//		return fmt.Errorf("init board client: %w", err)
//	}
//
//	batch, err := client.CheckUpdates(ctx)
//	if err != nil {
//		logger.Warn("check-updates failed", "error", err)
//	}
//
// # API Endpoints
//
//   - GET  /api/check-updates/          -> UpdateBatch
//   - POST /api/{post|comment}/{id}/reaction/ -> ReactionResult
//   - POST /api/post/{id}/delete/       -> DeleteResult
//   - GET  <page path>                  -> Page (HTML)
//
// The push endpoint (ws(s)://host/ws/board/) is derived by PushURL and dialed
// by the transport package; its frames share DecodeUpdate with check-updates.
//
// # CSRF
//
// Mutating requests carry X-CSRFToken. The token comes from SetCSRFToken when
// configured, otherwise from the csrftoken cookie. When the cookie is missing
// the client loads "/" once to let the server issue it.
//
// # Errors
//
//   - *APIError: non-2xx status; Message holds the JSON "error" field if any
//   - *RejectedError: success:false reply; errors.Is(err, ErrRejected) matches
//   - ErrMalformedUpdate: an update object without a string "type"
package board
