// Package session persists the client-stable identifier attached to
// reaction requests. The identifier lives in a small TOML file, is created on
// first use and never rotated.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

// Session identifies this client to the board when reacting.
type Session struct {
	ID string `toml:"session_id"`
}

const defaultSessionPath = "~/.local/state/boardsync/session.toml"

// DefaultPath returns the default session file path.
func DefaultPath() string {
	return defaultSessionPath
}

// Store reads and creates the session file at a fixed path. The first
// successful Initialize is cached so later calls in the same process return
// the identical value without touching disk.
type Store struct {
	path string

	mu      sync.Mutex
	current *Session
}

// NewStore returns a Store for path; empty uses DefaultPath.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Initialize returns the persisted session, creating and saving a new
// random identifier when none exists.
func (s *Store) Initialize() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return *s.current, nil
	}

	resolved, err := resolvePath(s.path)
	if err != nil {
		return Session{}, fmt.Errorf("resolve session path: %w", err)
	}

	existing, err := load(resolved)
	if err != nil {
		return Session{}, err
	}
	if existing.ID != "" {
		s.current = &existing
		return existing, nil
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	created := Session{ID: id.String()}
	if err := save(resolved, created); err != nil {
		return Session{}, err
	}
	s.current = &created
	return created, nil
}

// Initialize is a convenience wrapper around NewStore(path).Initialize.
func Initialize(path string) (Session, error) {
	return NewStore(path).Initialize()
}

func load(path string) (Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var stored Session
	if err := toml.Unmarshal(raw, &stored); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	stored.ID = strings.TrimSpace(stored.ID)
	return stored, nil
}

func save(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultSessionPath)
	}
	return expandPath(path)
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
