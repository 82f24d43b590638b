package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/config"
	"github.com/five82/boardsync/internal/session"
	"github.com/five82/boardsync/internal/state"
	"github.com/five82/boardsync/internal/transport"
	"github.com/five82/boardsync/internal/ui"
)

// Options carry command-line overrides on top of the config file.
type Options struct {
	ConfigPath string
	Transport  string // empty keeps the configured transport
	BaseURL    string // empty keeps the configured board
	ThemeName  string
}

// LoadConfig reads the config file and applies opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.SetTransport(opts.Transport); err != nil {
		return config.Config{}, err
	}
	if v := strings.TrimSpace(opts.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Open builds the board client, session and store for cfg and returns an
// engine that has not been started.
func Open(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	client, err := board.NewClient(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("init board client: %w", err)
	}
	client.SetCSRFToken(cfg.CSRFToken)

	sess, err := session.Initialize(cfg.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	store := state.NewStore(cfg.StartPath)
	return NewEngine(client, store, EngineOptions{
		Mode:      cfg.Transport,
		SessionID: sess.ID,
		PushURL:   client.PushURL(),
		Dialer:    transport.WebSocketDialer{Jar: client.Jar()},
		Logger:    logger,
	})
}

// Run boots the sync layer and the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, closer, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	engine, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("boardsync starting",
		"board", cfg.BaseURL,
		"transport", string(cfg.Transport),
		"view", cfg.StartPath,
	)

	engine.Start()
	defer engine.Stop()

	// Populate the store before the UI draws its first frame.
	engine.Refresh()

	return ui.Run(ctx, ui.Options{
		Context:   ctx,
		Actions:   engine,
		Store:     engine.Store(),
		LogPath:   cfg.LogPath,
		ThemeName: opts.ThemeName,
	})
}
