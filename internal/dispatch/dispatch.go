// Package dispatch routes board updates to notifications, view refreshes and
// reaction reconciliation.
//
// Routing is synchronous and does no I/O. The only deferred work is the view
// refresh, which runs RefreshDelay after the update that asked for it; a
// refresh requested while one is already pending is folded into it.
package dispatch

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/clock"
	"github.com/five82/boardsync/internal/state"
)

// RefreshDelay separates a new-content notification from the view reload so
// the toast is readable first.
const RefreshDelay = 2 * time.Second

// Notification texts.
const (
	MessageNewPost    = "A new post has been published!"
	MessageNewComment = "A new comment has been posted!"
)

// Notifier shows a toast to the user.
type Notifier interface {
	Notify(level state.Level, message string)
}

// Refresher reloads the current view.
type Refresher interface {
	Refresh()
}

// ViewLocator reports the path of the view on screen.
type ViewLocator interface {
	View() string
}

// Reconciler applies counters pushed by other sessions.
type Reconciler interface {
	Reconcile(update board.ReactionUpdate)
}

// View classifies a path for refresh decisions.
type View int

const (
	ViewOther View = iota
	ViewRoot
	ViewPostDetail
)

// ViewFromPath classifies path. The board root is "/" or empty; any path
// containing /post/ is a post detail page.
func ViewFromPath(path string) View {
	switch {
	case path == "" || path == "/":
		return ViewRoot
	case strings.Contains(path, "/post/"):
		return ViewPostDetail
	default:
		return ViewOther
	}
}

// Options tune a Dispatcher. Zero values use defaults.
type Options struct {
	Clock        clock.Clock
	Logger       *slog.Logger
	RefreshDelay time.Duration
}

// Dispatcher routes updates by kind.
type Dispatcher struct {
	notifier   Notifier
	refresher  Refresher
	views      ViewLocator
	reconciler Reconciler
	clock      clock.Clock
	delay      time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	stopped bool
	pending clock.Timer
	gen     uint64
}

// New builds a dispatcher. Any collaborator may be nil, in which case the
// corresponding effect is skipped.
func New(notifier Notifier, refresher Refresher, views ViewLocator, reconciler Reconciler, opts Options) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = RefreshDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		notifier:   notifier,
		refresher:  refresher,
		views:      views,
		reconciler: reconciler,
		clock:      opts.Clock,
		delay:      opts.RefreshDelay,
		logger:     logger.With("component", "dispatch"),
	}
}

// Dispatch handles one update.
func (d *Dispatcher) Dispatch(update board.Update) {
	switch update.Kind {
	case board.KindNewPost:
		d.notify(state.LevelInfo, MessageNewPost)
		if ViewFromPath(d.view()) == ViewRoot {
			d.scheduleRefresh()
		}
	case board.KindNewComment:
		d.notify(state.LevelInfo, MessageNewComment)
		if ViewFromPath(d.view()) == ViewPostDetail {
			d.scheduleRefresh()
		}
	case board.KindReactionChanged:
		ru, err := update.ReactionUpdate()
		if err != nil {
			d.logger.Warn("dropping reaction update", "error", err)
			return
		}
		d.logger.Debug("reaction update", "target_type", ru.TargetType, "target_id", ru.TargetID)
		if d.reconciler != nil {
			d.reconciler.Reconcile(ru)
		}
	default:
		d.logger.Info("unknown update type", "type", update.RawKind)
	}
}

// RefreshPending reports whether a refresh is scheduled.
func (d *Dispatcher) RefreshPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels a pending refresh and ignores later refresh requests.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Dispatcher) notify(level state.Level, message string) {
	if d.notifier != nil {
		d.notifier.Notify(level, message)
	}
}

func (d *Dispatcher) view() string {
	if d.views == nil {
		return ""
	}
	return d.views.View()
}

func (d *Dispatcher) scheduleRefresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.refresher == nil {
		return
	}
	if d.pending != nil {
		d.logger.Debug("refresh already pending")
		return
	}
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Dispatcher) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.gen++
	d.mu.Unlock()

	d.refresher.Refresh()
}
