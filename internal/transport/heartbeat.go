package transport

import (
	"sync"
	"time"

	"github.com/five82/boardsync/internal/clock"
)

// HeartbeatMonitor calls beat once per interval between Start and Stop.
type HeartbeatMonitor struct {
	clock    clock.Clock
	interval time.Duration
	beat     func()

	mu         sync.Mutex
	running    bool
	generation uint64
	timer      clock.Timer
}

// NewHeartbeatMonitor returns a stopped monitor.
func NewHeartbeatMonitor(c clock.Clock, interval time.Duration, beat func()) *HeartbeatMonitor {
	if c == nil {
		c = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatMonitor{clock: c, interval: interval, beat: beat}
}

// Start schedules the first beat one interval from now.
func (h *HeartbeatMonitor) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.generation++
	h.scheduleLocked(h.generation)
}

// Stop cancels the pending beat. A beat already firing on another
// goroutine is suppressed.
func (h *HeartbeatMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Running reports whether the monitor is started.
func (h *HeartbeatMonitor) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *HeartbeatMonitor) scheduleLocked(gen uint64) {
	h.timer = h.clock.AfterFunc(h.interval, func() { h.fire(gen) })
}

func (h *HeartbeatMonitor) fire(gen uint64) {
	h.mu.Lock()
	if !h.running || gen != h.generation {
		h.mu.Unlock()
		return
	}
	h.scheduleLocked(gen)
	h.mu.Unlock()

	h.beat()
}
