package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/transport"
)

// Level is the severity of a user-visible notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is one toast shown to the user.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Tone is the visual weight of the connectivity indicator.
type Tone int

const (
	ToneMuted Tone = iota
	ToneSuccess
	ToneWarning
)

// Indicator is the rendered connectivity status.
type Indicator struct {
	Glyph string
	Text  string
	Tone  Tone
}

// Label joins glyph and text.
func (i Indicator) Label() string {
	if i.Glyph == "" {
		return i.Text
	}
	return i.Glyph + " " + i.Text
}

// maxNotifications bounds the toast history kept for the view.
const maxNotifications = 20

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	SessionID           string
	View                string
	Connection          transport.State
	Indicator           Indicator
	Page                board.Page
	HasPage             bool
	Reactions           []board.ReactionCount
	Notifications       []Notification
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive page refresh failures
}

// IsOffline returns true when the board has been unreachable for multiple refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// LatestNotification returns the most recent toast, if any.
func (s Snapshot) LatestNotification() (Notification, bool) {
	if len(s.Notifications) == 0 {
		return Notification{}, false
	}
	return s.Notifications[len(s.Notifications)-1], true
}

// Reaction looks up the displayed counter for one target.
func (s Snapshot) Reaction(target board.TargetType, id, reaction string) (board.ReactionCount, bool) {
	for _, rc := range s.Reactions {
		if rc.TargetType == target && rc.TargetID == id && rc.Reaction == reaction {
			return rc, true
		}
	}
	return board.ReactionCount{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewStore returns a store positioned at view.
func NewStore(view string) *Store {
	s := &Store{}
	s.snapshot.View = view
	s.snapshot.Connection = transport.Closed
	return s
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SetSession records the session identity shown in the header.
func (s *Store) SetSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.SessionID = id
}

// View returns the path of the page currently shown.
func (s *Store) View() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.View
}

// SetView navigates to path. The previous page is kept until the next
// refresh replaces it.
func (s *Store) SetView(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.View = path
}

// SetConnection records the active channel's state.
func (s *Store) SetConnection(st transport.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connection = st
}

// SetIndicator stores the rendered connectivity indicator.
func (s *Store) SetIndicator(ind Indicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Indicator = ind
}

// Notify appends a toast, dropping the oldest beyond the history limit.
func (s *Store) Notify(level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Notifications = append(s.snapshot.Notifications, Notification{
		Level:   level,
		Message: message,
		At:      s.clock(),
	})
	if n := len(s.snapshot.Notifications); n > maxNotifications {
		s.snapshot.Notifications = append([]Notification(nil), s.snapshot.Notifications[n-maxNotifications:]...)
	}
}

// UpdatePage replaces the stored page. When err is non-nil the previous page
// is kept but the error is recorded for visibility.
func (s *Store) UpdatePage(page *board.Page, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = s.clock()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if page != nil {
		s.snapshot.Page = clonePage(*page)
		s.snapshot.HasPage = true
	} else {
		s.snapshot.Page = board.Page{}
		s.snapshot.HasPage = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = s.clock()
	s.snapshot.ConsecutiveFailures = 0
}

// SetReactions replaces the displayed reaction counters.
func (s *Store) SetReactions(reactions []board.ReactionCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Reactions = cloneReactions(reactions)
	sort.SliceStable(s.snapshot.Reactions, func(i, j int) bool {
		a, b := s.snapshot.Reactions[i], s.snapshot.Reactions[j]
		if a.TargetType != b.TargetType {
			return a.TargetType < b.TargetType
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.Reaction < b.Reaction
	})
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Page = clonePage(s.snapshot.Page)
	snap.Reactions = cloneReactions(s.snapshot.Reactions)
	if len(s.snapshot.Notifications) > 0 {
		snap.Notifications = append([]Notification(nil), s.snapshot.Notifications...)
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func clonePage(page board.Page) board.Page {
	dup := page
	if len(page.Posts) > 0 {
		dup.Posts = append([]board.PostSummary(nil), page.Posts...)
	}
	dup.Reactions = cloneReactions(page.Reactions)
	return dup
}

func cloneReactions(items []board.ReactionCount) []board.ReactionCount {
	if len(items) == 0 {
		return nil
	}
	dup := make([]board.ReactionCount, len(items))
	copy(dup, items)
	return dup
}
