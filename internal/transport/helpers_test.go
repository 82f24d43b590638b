package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/five82/boardsync/internal/board"
)

type recordingSink struct {
	mu      sync.Mutex
	updates []board.Update
	states  []State
}

func (s *recordingSink) HandleUpdate(u board.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

func (s *recordingSink) HandleStatus(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *recordingSink) Updates() []board.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]board.Update(nil), s.updates...)
}

func (s *recordingSink) States() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func statesEqual(got, want []State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
