// Package config handles loading and parsing the boardsync configuration file.
//
// # Overview
//
// This package reads a TOML file describing which board to follow and how.
// Every field is optional; boardsync works against a local development board
// with no configuration at all.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/boardsync/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/boardsync/config.toml
//   - Board: http://127.0.0.1:8000
//   - Transport: polling
//   - Start page: /
//   - Session file: ~/.local/state/boardsync/session.toml
//   - Log file: ~/.local/state/boardsync/boardsync.log
//   - Log level/format: info/text
//
// # TOML Format
//
//	base_url = "https://board.example.com"
//	transport = "push"          # polling | push (websocket, ws)
//	start_path = "/"
//	session_path = "~/.local/state/boardsync/session.toml"
//	log_path = "~/.local/state/boardsync/boardsync.log"
//	log_level = "info"          # debug | info | warn | error
//	log_format = "text"         # text | json
//	csrf_token = ""             # overrides the csrftoken cookie
//
// Tilde expansion is performed for session_path and log_path.
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors, and values
// that cannot work (unknown transport, non-http base URL, relative start
// path, unknown log level or format). A missing file is NOT an error.
//
// # Overrides
//
// The CLI applies flag overrides after Load; SetTransport and Validate are
// exported for that purpose.
package config
