package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/clock"
)

// Conn is one established push connection.
type Conn interface {
	// ReadMessage blocks for the next data frame.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer establishes push connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// PushOptions tune a PushChannel. Zero values use defaults.
type PushOptions struct {
	Clock             clock.Clock
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration // after a peer close or read failure
	DialRetryDelay    time.Duration // after a failed dial
}

// PushChannel keeps a persistent connection to the board's sync endpoint,
// pings it on a heartbeat and reconnects forever with fixed delays.
type PushChannel struct {
	url    string
	dialer Dialer
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger

	heartbeatInterval time.Duration
	reconnectDelay    time.Duration
	dialRetryDelay    time.Duration

	mu        sync.Mutex
	state     State
	started   bool
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	conn      Conn
	attempt   uint64
	reconnect clock.Timer
	retryGen  uint64
	heartbeat *HeartbeatMonitor
}

var _ Channel = (*PushChannel)(nil)

// NewPushChannel builds a push channel for url delivering into sink.
func NewPushChannel(url string, dialer Dialer, sink Sink, opts PushOptions) *PushChannel {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = PeerCloseReconnectDelay
	}
	if opts.DialRetryDelay <= 0 {
		opts.DialRetryDelay = DialFailureRetryDelay
	}
	return &PushChannel{
		url:               url,
		dialer:            dialer,
		sink:              sink,
		clock:             opts.Clock,
		logger:            orDiscard(opts.Logger).With("component", "push"),
		heartbeatInterval: opts.HeartbeatInterval,
		reconnectDelay:    opts.ReconnectDelay,
		dialRetryDelay:    opts.DialRetryDelay,
		state:             Closed,
	}
}

// Open starts the first connection attempt.
func (p *PushChannel) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.setStateLocked(Connecting)
	p.dialLocked()
}

// Close tears down the connection, the heartbeat and any pending reconnect.
func (p *PushChannel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.setStateLocked(Closed)
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.cancelReconnectLocked()
	p.dropConnLocked()
	p.logger.Info("push channel closed")
}

// State returns the current connectivity.
func (p *PushChannel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PushChannel) dialLocked() {
	p.attempt++
	attempt := p.attempt
	ctx := p.ctx
	go p.dial(ctx, attempt)
}

func (p *PushChannel) dial(ctx context.Context, attempt uint64) {
	conn, err := p.dialSafely(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || attempt != p.attempt {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		p.logger.Warn("push connect failed", "url", p.url, "error", err, "retry_in", p.dialRetryDelay)
		p.setStateLocked(Closed)
		p.scheduleReconnectLocked(p.dialRetryDelay)
		return
	}

	p.conn = conn
	p.setStateLocked(Open)
	p.heartbeat = NewHeartbeatMonitor(p.clock, p.heartbeatInterval, func() { p.beat(conn) })
	p.heartbeat.Start()
	p.logger.Info("push connected", "url", p.url)
	go p.read(conn)
}

func (p *PushChannel) dialSafely(ctx context.Context) (conn Conn, err error) {
	defer func() {
		if r := recover(); r != nil {
			conn, err = nil, fmt.Errorf("dial panicked: %v", r)
		}
	}()
	return p.dialer.Dial(ctx, p.url)
}

func (p *PushChannel) read(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			p.lost(conn, err)
			return
		}
		p.deliver(conn, data)
	}
}

// deliver parses one frame. Frames may hold several newline-delimited JSON
// objects; anything unparseable is dropped.
func (p *PushChannel) deliver(conn Conn, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.conn != conn {
		return
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		update, err := board.DecodeUpdate(line)
		if err != nil {
			p.logger.Warn("dropping push frame", "error", err, "bytes", len(line))
			continue
		}
		if board.IsControl(update.RawKind) {
			continue
		}
		p.sink.HandleUpdate(update)
	}
}

// lost handles a peer close or read failure on the current connection.
func (p *PushChannel) lost(conn Conn, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.conn != conn {
		return
	}
	p.logger.Warn("push connection lost", "error", err, "retry_in", p.reconnectDelay)
	p.dropConnLocked()
	p.setStateLocked(Closed)
	p.scheduleReconnectLocked(p.reconnectDelay)
}

// beat pings the connection; a connection that cannot take the ping is
// replaced right away instead of waiting for the read side to notice.
func (p *PushChannel) beat(conn Conn) {
	p.mu.Lock()
	current := !p.closed && p.conn == conn
	p.mu.Unlock()
	if !current {
		return
	}

	err := conn.WriteMessage(board.PingFrame())
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.conn != conn {
		return
	}
	p.logger.Warn("heartbeat failed, reopening", "error", err)
	p.dropConnLocked()
	p.cancelReconnectLocked()
	p.setStateLocked(Reconnecting)
	p.dialLocked()
}

// scheduleReconnectLocked replaces any pending retry, so at most one
// reconnect is ever scheduled.
func (p *PushChannel) scheduleReconnectLocked(delay time.Duration) {
	p.cancelReconnectLocked()
	gen := p.retryGen
	p.reconnect = p.clock.AfterFunc(delay, func() { p.reconnectNow(gen) })
}

func (p *PushChannel) cancelReconnectLocked() {
	p.retryGen++
	if p.reconnect != nil {
		p.reconnect.Stop()
		p.reconnect = nil
	}
}

func (p *PushChannel) reconnectNow(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.retryGen {
		return
	}
	p.reconnect = nil
	p.setStateLocked(Reconnecting)
	p.dialLocked()
}

func (p *PushChannel) dropConnLocked() {
	if p.heartbeat != nil {
		p.heartbeat.Stop()
		p.heartbeat = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *PushChannel) setStateLocked(next State) {
	if p.state == next {
		return
	}
	p.state = next
	p.logger.Debug("state changed", "state", next)
	p.sink.HandleStatus(next)
}
