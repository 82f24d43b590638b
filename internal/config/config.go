package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/boardsync/internal/transport"
)

// Config captures everything boardsync needs to reach a board and run the
// sync layer.
type Config struct {
	BaseURL     string
	Transport   transport.Mode
	StartPath   string
	SessionPath string
	LogPath     string
	LogLevel    slog.Level
	LogFormat   string
	CSRFToken   string
}

const (
	DefaultConfigPath  = "~/.config/boardsync/config.toml"
	defaultBaseURL     = "http://127.0.0.1:8000"
	defaultStartPath   = "/"
	defaultSessionPath = "~/.local/state/boardsync/session.toml"
	defaultLogPath     = "~/.local/state/boardsync/boardsync.log"
	defaultLogFormat   = "text"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:     defaultBaseURL,
		Transport:   transport.ModePolling,
		StartPath:   defaultStartPath,
		SessionPath: mustExpand(defaultSessionPath),
		LogPath:     mustExpand(defaultLogPath),
		LogLevel:    slog.LevelInfo,
		LogFormat:   defaultLogFormat,
	}
}

// Load locates and parses the boardsync config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL     string `toml:"base_url"`
		Transport   string `toml:"transport"`
		StartPath   string `toml:"start_path"`
		SessionPath string `toml:"session_path"`
		LogPath     string `toml:"log_path"`
		LogLevel    string `toml:"log_level"`
		LogFormat   string `toml:"log_format"`
		CSRFToken   string `toml:"csrf_token"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if err := cfg.SetTransport(raw.Transport); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(raw.StartPath); v != "" {
		cfg.StartPath = v
	}
	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		cfg.SessionPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = level
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogFormat)); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("log_format must be text or json, got %q", raw.LogFormat)
		}
		cfg.LogFormat = v
	}
	cfg.CSRFToken = strings.TrimSpace(raw.CSRFToken)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetTransport applies a transport name; empty keeps polling.
func (c *Config) SetTransport(raw string) error {
	if strings.TrimSpace(raw) == "" {
		if c.Transport == "" {
			c.Transport = transport.ModePolling
		}
		return nil
	}
	mode, err := transport.ParseMode(raw)
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	c.Transport = mode
	return nil
}

// Validate checks fields that would otherwise fail later with a less useful error.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if !strings.HasPrefix(c.StartPath, "/") {
		return fmt.Errorf("start_path must begin with /, got %q", c.StartPath)
	}
	return nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
