package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/clock"
	"github.com/five82/boardsync/internal/dispatch"
	"github.com/five82/boardsync/internal/reaction"
	"github.com/five82/boardsync/internal/state"
	"github.com/five82/boardsync/internal/transport"
	"github.com/five82/boardsync/internal/ui"
)

// Messages shown after a delete.
const (
	MessagePostDeleted  = "The post was deleted."
	MessageDeleteFailed = "Failed to delete the post."
)

// EngineOptions configure an Engine. Zero values use defaults.
type EngineOptions struct {
	Mode      transport.Mode
	SessionID string

	// Push transport
	PushURL string
	Dialer  transport.Dialer

	Clock        clock.Clock
	Logger       *slog.Logger
	PollInterval time.Duration
	RefreshDelay time.Duration
}

// Engine is the sync context for one board: it owns the transport channel,
// the update dispatcher and the reaction controller, and keeps the view
// store current. It is the Sink of the channel, the Refresher and
// ViewLocator of the dispatcher, and the Listener of the controller.
type Engine struct {
	api        board.API
	store      *state.Store
	presenter  *ui.Presenter
	dispatcher *dispatch.Dispatcher
	reactions  *reaction.Controller
	channel    transport.Channel
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	refreshMu sync.Mutex

	mu   sync.Mutex
	acks map[reaction.Target]board.ReactionAction
	stop sync.Once
}

var (
	_ transport.Sink     = (*Engine)(nil)
	_ dispatch.Refresher = (*Engine)(nil)
	_ reaction.Listener  = (*Engine)(nil)
	_ ui.Actions         = (*Engine)(nil)
)

// NewEngine wires the sync layer for api around store. Nothing runs until Start.
func NewEngine(api board.API, store *state.Store, opts EngineOptions) (*Engine, error) {
	if api == nil {
		return nil, errors.New("board api is required")
	}
	if store == nil {
		return nil, errors.New("state store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Mode == "" {
		opts.Mode = transport.ModePolling
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		api:       api,
		store:     store,
		presenter: ui.NewPresenter(store),
		logger:    logger.With("component", "engine"),
		ctx:       ctx,
		cancel:    cancel,
		acks:      make(map[reaction.Target]board.ReactionAction),
	}
	if opts.SessionID != "" {
		store.SetSession(opts.SessionID)
	}

	e.reactions = reaction.New(api, opts.SessionID, reaction.Options{
		Logger:   logger,
		Notifier: e,
		Listener: e,
	})
	e.dispatcher = dispatch.New(e, e, e, e.reactions, dispatch.Options{
		Clock:        opts.Clock,
		Logger:       logger,
		RefreshDelay: opts.RefreshDelay,
	})

	switch opts.Mode {
	case transport.ModePush:
		if opts.Dialer == nil || opts.PushURL == "" {
			cancel()
			return nil, errors.New("push transport needs a dialer and url")
		}
		e.channel = transport.NewPushChannel(opts.PushURL, opts.Dialer, e, transport.PushOptions{
			Clock:  opts.Clock,
			Logger: logger,
		})
	case transport.ModePolling:
		e.channel = transport.NewPollingChannel(api, e, transport.PollingOptions{
			Clock:    opts.Clock,
			Interval: opts.PollInterval,
			Logger:   logger,
		})
	default:
		cancel()
		return nil, fmt.Errorf("unknown transport %q", opts.Mode)
	}
	return e, nil
}

// Store returns the view store the engine keeps current.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Start opens the transport channel.
func (e *Engine) Start() {
	e.logger.Info("engine starting", "view", e.store.View())
	e.channel.Open()
}

// Stop closes the channel, cancels pending refreshes and in-flight requests
// and waits for reaction requests to unwind. Safe to call more than once.
func (e *Engine) Stop() {
	e.stop.Do(func() {
		e.channel.Close()
		e.dispatcher.Stop()
		e.reactions.Close()
		e.cancel()
		e.reactions.Wait()
		e.logger.Info("engine stopped")
	})
}

// HandleUpdate implements transport.Sink.
func (e *Engine) HandleUpdate(update board.Update) {
	e.dispatcher.Dispatch(update)
}

// HandleStatus implements transport.Sink.
func (e *Engine) HandleStatus(st transport.State) {
	e.logger.Debug("connection state changed", "state", st.String())
	e.store.SetConnection(st)
	e.presenter.Show(st)
}

// View implements dispatch.ViewLocator.
func (e *Engine) View() string {
	return e.store.View()
}

// Notify shows a toast and mirrors it to the log.
func (e *Engine) Notify(level state.Level, message string) {
	e.logger.Info("notification", "level", level.String(), "message", message)
	e.store.Notify(level, message)
}

// Refresh reloads the page on screen and seeds reaction state from it.
// A failed load keeps the previous page.
func (e *Engine) Refresh() {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	path := e.store.View()
	page, err := e.api.FetchPage(e.ctx, path)
	if err != nil {
		if e.ctx.Err() != nil {
			return
		}
		e.logger.Warn("page refresh failed", "path", path, "error", err)
		e.store.UpdatePage(nil, err)
		return
	}
	if e.store.View() != path {
		e.logger.Debug("discarding page for previous view", "path", path)
		return
	}

	states := make([]reaction.State, 0, len(page.Reactions))
	for _, rc := range page.Reactions {
		states = append(states, reaction.FromCount(rc))
	}
	e.reactions.Seed(states...)
	e.store.UpdatePage(&page, nil)
	e.publishReactions()
	e.logger.Debug("page refreshed", "path", path, "posts", len(page.Posts), "reactions", len(page.Reactions))
}

// Navigate switches the view to path and loads it.
func (e *Engine) Navigate(path string) {
	e.store.SetView(path)
	e.Refresh()
}

// Toggle flips a reaction optimistically; see reaction.Controller.Toggle.
func (e *Engine) Toggle(target reaction.Target) bool {
	return e.reactions.Toggle(target)
}

// React toggles target and waits for the server's answer. It returns the
// reconciled state, or the user-facing failure message as an error.
func (e *Engine) React(target reaction.Target) (reaction.State, error) {
	e.mu.Lock()
	delete(e.acks, target)
	e.mu.Unlock()

	if !e.reactions.Toggle(target) {
		return reaction.State{}, fmt.Errorf("toggle %s was not sent", target)
	}
	e.reactions.Wait()

	st, _ := e.reactions.State(target)
	e.mu.Lock()
	_, acked := e.acks[target]
	e.mu.Unlock()
	if acked {
		return st, nil
	}
	if n, ok := e.store.Snapshot().LatestNotification(); ok && n.Level == state.LevelError {
		return st, errors.New(n.Message)
	}
	return st, errors.New(reaction.MessageRejected)
}

// DeletePost deletes a post, then shows the board root. The outcome is
// reported through the store as well as returned.
func (e *Engine) DeletePost(ctx context.Context, postID string) error {
	if err := e.api.DeletePost(ctx, postID); err != nil {
		e.logger.Warn("delete post failed", "post", postID, "error", err)
		e.Notify(state.LevelError, deleteFailureMessage(err))
		return err
	}
	e.logger.Info("post deleted", "post", postID)
	e.Notify(state.LevelSuccess, MessagePostDeleted)
	e.Navigate("/")
	return nil
}

// ReactionChanged implements reaction.Listener.
func (e *Engine) ReactionChanged(reaction.State) {
	e.publishReactions()
}

// ReactionAcknowledged implements reaction.Listener.
func (e *Engine) ReactionAcknowledged(target reaction.Target, action board.ReactionAction) {
	e.mu.Lock()
	e.acks[target] = action
	e.mu.Unlock()
	e.store.Notify(state.LevelSuccess, ackMessage(target, action))
}

func (e *Engine) publishReactions() {
	states := e.reactions.States()
	counts := make([]board.ReactionCount, 0, len(states))
	for _, st := range states {
		counts = append(counts, st.ReactionCount())
	}
	e.store.SetReactions(counts)
}

func ackMessage(target reaction.Target, action board.ReactionAction) string {
	switch action {
	case board.ActionAdded:
		return fmt.Sprintf("Reacted %s.", target.Reaction)
	case board.ActionRemoved:
		return fmt.Sprintf("Removed %s.", target.Reaction)
	case board.ActionChanged:
		return fmt.Sprintf("Changed reaction to %s.", target.Reaction)
	default:
		return "Reaction saved."
	}
}

func deleteFailureMessage(err error) string {
	var rejected *board.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	var apiErr *board.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MessageDeleteFailed
}
