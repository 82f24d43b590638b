package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/clock"
)

// UpdateChecker fetches pending updates. *board.Client implements it.
type UpdateChecker interface {
	CheckUpdates(ctx context.Context) (board.UpdateBatch, error)
}

// PollingOptions tune a PollingChannel. Zero values use defaults.
type PollingOptions struct {
	Clock    clock.Clock
	Interval time.Duration
	Logger   *slog.Logger
}

// PollingChannel checks for updates on a fixed interval. A failed check
// marks the channel Closed, and the same timer keeps retrying.
type PollingChannel struct {
	checker  UpdateChecker
	sink     Sink
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	started  bool
	closed   bool
	inFlight bool
	failures int
	timer    clock.Timer
	ctx      context.Context
	cancel   context.CancelFunc
}

var _ Channel = (*PollingChannel)(nil)

// NewPollingChannel builds a polling channel delivering into sink.
func NewPollingChannel(checker UpdateChecker, sink Sink, opts PollingOptions) *PollingChannel {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	return &PollingChannel{
		checker:  checker,
		sink:     sink,
		clock:    opts.Clock,
		interval: opts.Interval,
		logger:   orDiscard(opts.Logger).With("component", "polling"),
		state:    Closed,
	}
}

// Open starts the interval. There is no handshake, so the channel reports
// Open immediately; the first check runs one interval later.
func (p *PollingChannel) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.setStateLocked(Connecting)
	p.setStateLocked(Open)
	p.scheduleLocked()
	p.logger.Info("polling started", "interval", p.interval)
}

// Close stops the timer and discards any outstanding check.
func (p *PollingChannel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.setStateLocked(Closed)
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("polling stopped")
}

// State returns the current connectivity.
func (p *PollingChannel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ConsecutiveFailures returns the number of checks that failed in a row.
func (p *PollingChannel) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *PollingChannel) scheduleLocked() {
	p.timer = p.clock.AfterFunc(p.interval, p.tick)
}

func (p *PollingChannel) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.scheduleLocked()
	if p.inFlight {
		p.logger.Debug("previous check still outstanding, skipping tick")
		return
	}
	p.inFlight = true
	ctx := p.ctx
	go p.check(ctx)
}

func (p *PollingChannel) check(ctx context.Context) {
	batch, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.inFlight = false
	if err != nil {
		p.failures++
		p.logger.Warn("check-updates failed", "error", err, "failures", p.failures)
		p.setStateLocked(Closed)
		return
	}
	p.failures = 0
	if batch.Malformed > 0 {
		p.logger.Warn("dropped malformed updates", "count", batch.Malformed)
	}
	p.setStateLocked(Open)
	for _, update := range batch.Updates {
		p.sink.HandleUpdate(update)
	}
}

// fetch runs one check, converting a panic in the checker into an error.
func (p *PollingChannel) fetch(ctx context.Context) (batch board.UpdateBatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check-updates panicked: %v", r)
		}
	}()
	return p.checker.CheckUpdates(ctx)
}

func (p *PollingChannel) setStateLocked(next State) {
	if p.state == next {
		return
	}
	p.state = next
	p.logger.Debug("state changed", "state", next)
	p.sink.HandleStatus(next)
}
