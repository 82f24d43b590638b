package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/boardsync/internal/transport"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("BaseURL = %q, want %q", cfg.BaseURL, defaultBaseURL)
	}
	if cfg.Transport != transport.ModePolling {
		t.Fatalf("Transport = %q, want polling", cfg.Transport)
	}
	if cfg.StartPath != "/" {
		t.Fatalf("StartPath = %q, want /", cfg.StartPath)
	}

	wantLog, err := expandPath(defaultLogPath)
	if err != nil {
		t.Fatalf("expandPath(defaultLogPath) returned error: %v", err)
	}
	if cfg.LogPath != wantLog {
		t.Fatalf("LogPath = %q, want %q", cfg.LogPath, wantLog)
	}
	if !strings.HasPrefix(cfg.SessionPath, home) {
		t.Fatalf("SessionPath = %q, want it under HOME %q", cfg.SessionPath, home)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
		t.Fatalf("log = %v/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
base_url = "  https://board.example.com  "
transport = " websocket "
start_path = "/post/7/"
session_path = "~/.boardsync/session.toml"
log_path = "  ~/.boardsync/sync.log  "
log_level = "DEBUG"
log_format = "JSON"
csrf_token = " tok "
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != "https://board.example.com" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Transport != transport.ModePush {
		t.Fatalf("Transport = %q, want push", cfg.Transport)
	}
	if cfg.StartPath != "/post/7/" {
		t.Fatalf("StartPath = %q", cfg.StartPath)
	}
	if cfg.SessionPath != filepath.Join(home, ".boardsync/session.toml") {
		t.Fatalf("SessionPath = %q, want it under HOME %q", cfg.SessionPath, home)
	}
	if cfg.LogPath != filepath.Join(home, ".boardsync/sync.log") {
		t.Fatalf("LogPath = %q, want it under HOME %q", cfg.LogPath, home)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
		t.Fatalf("log = %v/%q, want debug/json", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.CSRFToken != "tok" {
		t.Fatalf("CSRFToken = %q, want tok", cfg.CSRFToken)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
base_url = "   "
transport = ""
log_path = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("BaseURL = %q, want %q", cfg.BaseURL, defaultBaseURL)
	}
	if cfg.Transport != transport.ModePolling {
		t.Fatalf("Transport = %q, want polling", cfg.Transport)
	}
	wantLog, err := expandPath(defaultLogPath)
	if err != nil {
		t.Fatalf("expandPath(defaultLogPath) returned error: %v", err)
	}
	if cfg.LogPath != wantLog {
		t.Fatalf("LogPath = %q, want %q", cfg.LogPath, wantLog)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid toml", `base_url = [`, "parse config"},
		{"unknown transport", `transport = "carrier-pigeon"`, "transport"},
		{"bad scheme", `base_url = "ftp://board"`, "base_url"},
		{"relative start", `start_path = "post/1"`, "start_path"},
		{"bad level", `log_level = "loud"`, "log_level"},
		{"bad format", `log_format = "xml"`, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load returned nil error, want %s error", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load error = %q, want it to mention %s", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetTransport(t *testing.T) {
	cfg := Default()
	if err := cfg.SetTransport("push"); err != nil || cfg.Transport != transport.ModePush {
		t.Fatalf("SetTransport(push) = %v, transport %q", err, cfg.Transport)
	}
	if err := cfg.SetTransport(""); err != nil || cfg.Transport != transport.ModePush {
		t.Fatalf("SetTransport(\"\") should keep push, got %q (%v)", cfg.Transport, err)
	}
	if err := cfg.SetTransport("smoke"); err == nil {
		t.Fatal("SetTransport(smoke) returned nil error")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
