package reaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/state"
)

// Failure texts shown when a toggle is rolled back.
const (
	MessageRejected     = "Failed to process reaction."
	MessageNetworkError = "A network error occurred."
)

// Target identifies one reaction button: a reaction kind on a post or comment.
type Target struct {
	Type     board.TargetType
	ID       string
	Reaction string
}

// NewTarget validates and normalizes a target.
func NewTarget(targetType, id, reaction string) (Target, error) {
	tt, err := board.ParseTargetType(targetType)
	if err != nil {
		return Target{}, err
	}
	t := Target{Type: tt, ID: strings.TrimSpace(id), Reaction: strings.ToLower(strings.TrimSpace(reaction))}
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

// Validate reports whether the target can be sent to the server.
func (t Target) Validate() error {
	if _, err := board.ParseTargetType(string(t.Type)); err != nil {
		return err
	}
	if t.ID == "" {
		return fmt.Errorf("target id required")
	}
	if t.Reaction == "" {
		return fmt.Errorf("reaction type required")
	}
	return nil
}

// Sibling returns the opposing like/dislike button of the same entity.
func (t Target) Sibling() (Target, bool) {
	switch t.Reaction {
	case board.ReactionLike:
		return Target{Type: t.Type, ID: t.ID, Reaction: board.ReactionDislike}, true
	case board.ReactionDislike:
		return Target{Type: t.Type, ID: t.ID, Reaction: board.ReactionLike}, true
	}
	return Target{}, false
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Type, t.ID, t.Reaction)
}

// State is the displayed state of one reaction button.
type State struct {
	Target Target
	Count  int
	Active bool
}

// FromCount converts a scraped button.
func FromCount(rc board.ReactionCount) State {
	return State{
		Target: Target{Type: rc.TargetType, ID: rc.TargetID, Reaction: rc.Reaction},
		Count:  rc.Count,
		Active: rc.Active,
	}
}

// ReactionCount converts back to the display form used by the state store.
func (s State) ReactionCount() board.ReactionCount {
	return board.ReactionCount{
		TargetType: s.Target.Type,
		TargetID:   s.Target.ID,
		Reaction:   s.Target.Reaction,
		Count:      s.Count,
		Active:     s.Active,
	}
}

// Requester sends reaction toggles. *board.Client implements it.
type Requester interface {
	ToggleReaction(ctx context.Context, req board.ReactionRequest) (board.ReactionResult, error)
}

// Notifier shows a toast to the user.
type Notifier interface {
	Notify(level state.Level, message string)
}

// Listener observes state changes. Calls happen outside the controller's
// lock and may read the controller.
type Listener interface {
	// ReactionChanged is called after a target's displayed state changes.
	ReactionChanged(st State)
	// ReactionAcknowledged is called once the server confirmed a toggle.
	ReactionAcknowledged(target Target, action board.ReactionAction)
}

// Options configure a Controller.
type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
	Listener Listener
}

// Controller applies reaction toggles optimistically and reconciles them
// with the server's reply.
//
// Each target moves Idle -> Pending -> Idle. While a target is pending a
// second toggle is ignored, not queued, and passive updates from other
// sessions leave it alone. On failure the target returns to exactly the
// state it had before the toggle.
type Controller struct {
	api       Requester
	sessionID string
	logger    *slog.Logger
	notifier  Notifier
	listener  Listener

	mu      sync.Mutex
	states  map[Target]State
	pending map[Target]bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a controller that sends toggles through api with sessionID.
func New(api Requester, sessionID string, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:       api,
		sessionID: sessionID,
		logger:    logger.With("component", "reaction"),
		notifier:  opts.Notifier,
		listener:  opts.Listener,
		states:    make(map[Target]State),
		pending:   make(map[Target]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Toggle flips target optimistically and sends the request. It returns false
// when the toggle was ignored because target already has a request in flight,
// the target is invalid, or the controller is closed.
func (c *Controller) Toggle(target Target) bool {
	if err := target.Validate(); err != nil {
		c.logger.Warn("ignoring invalid reaction target", "target", target.String(), "error", err)
		return false
	}

	c.mu.Lock()
	if c.closed || c.pending[target] {
		c.mu.Unlock()
		return false
	}
	prev, ok := c.states[target]
	if !ok {
		prev = State{Target: target}
	}
	next := prev
	next.Active = !prev.Active
	if next.Active {
		next.Count++
	} else if next.Count > 0 {
		next.Count--
	}
	c.states[target] = next
	c.pending[target] = true
	c.wg.Add(1)
	ctx := c.ctx
	c.mu.Unlock()

	c.changed(next)
	go c.send(ctx, target, prev)
	return true
}

// Pending reports whether target has a request in flight.
func (c *Controller) Pending(target Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[target]
}

// Seed loads rendered state, for example after a page refresh. Pending
// targets keep their optimistic state.
func (c *Controller) Seed(states ...State) {
	var changed []State
	c.mu.Lock()
	for _, st := range states {
		if st.Target.Validate() != nil || c.pending[st.Target] {
			continue
		}
		if st.Count < 0 {
			st.Count = 0
		}
		if cur, ok := c.states[st.Target]; ok && cur == st {
			continue
		}
		c.states[st.Target] = st
		changed = append(changed, st)
	}
	c.mu.Unlock()

	for _, st := range changed {
		c.changed(st)
	}
}

// State returns the displayed state of target.
func (c *Controller) State(target Target) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[target]
	return st, ok
}

// States returns every known target in a stable order.
func (c *Controller) States() []State {
	c.mu.Lock()
	out := make([]State, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, st)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Target.String() < out[j].Target.String()
	})
	return out
}

// Reconcile applies counters broadcast for another session's change. Only
// counts change; Active reflects this session and is left alone. Pending
// targets are skipped so an in-flight toggle is never overwritten.
func (c *Controller) Reconcile(update board.ReactionUpdate) {
	var changed []State
	c.mu.Lock()
	for _, rc := range []struct {
		reaction string
		count    *int
	}{
		{board.ReactionLike, update.LikesCount},
		{board.ReactionDislike, update.DislikesCount},
	} {
		if rc.count == nil {
			continue
		}
		target := Target{Type: update.TargetType, ID: update.TargetID, Reaction: rc.reaction}
		if c.pending[target] {
			c.logger.Debug("skipping reconcile for pending target", "target", target.String())
			continue
		}
		st, ok := c.states[target]
		if !ok {
			st = State{Target: target}
		}
		count := max(*rc.count, 0)
		if ok && st.Count == count {
			continue
		}
		st.Count = count
		c.states[target] = st
		changed = append(changed, st)
	}
	c.mu.Unlock()

	for _, st := range changed {
		c.changed(st)
	}
}

// Close cancels in-flight requests; their results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()
}

// Wait blocks until every request started by Toggle has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) send(ctx context.Context, target Target, prev State) {
	defer c.wg.Done()

	result, err := c.request(ctx, target)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, target)

	if err != nil {
		c.states[target] = prev
		c.mu.Unlock()

		message := failureMessage(err)
		c.logger.Warn("reaction toggle failed", "target", target.String(), "error", err)
		c.changed(prev)
		if c.notifier != nil {
			c.notifier.Notify(state.LevelError, message)
		}
		return
	}

	changed := c.applyLocked(target, result)
	c.mu.Unlock()

	c.logger.Info("reaction toggled", "target", target.String(), "action", result.Action)
	for _, st := range changed {
		c.changed(st)
	}
	if c.listener != nil {
		c.listener.ReactionAcknowledged(target, result.Action)
	}
}

func (c *Controller) request(ctx context.Context, target Target) (result board.ReactionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reaction request panicked: %v", r)
		}
	}()
	return c.api.ToggleReaction(ctx, board.ReactionRequest{
		TargetType:   target.Type,
		TargetID:     target.ID,
		ReactionType: target.Reaction,
		SessionID:    c.sessionID,
	})
}

// applyLocked makes the server's reply authoritative for target and its
// sibling, returning the states that changed.
func (c *Controller) applyLocked(target Target, result board.ReactionResult) []State {
	optimistic := c.states[target]
	st := optimistic

	if n, ok := serverCount(target.Reaction, result); ok {
		st.Count = n
	}
	switch {
	case result.IsActive != nil:
		st.Active = *result.IsActive
	case result.Action == board.ActionAdded || result.Action == board.ActionChanged:
		st.Active = true
	case result.Action == board.ActionRemoved:
		st.Active = false
	}
	c.states[target] = st
	changed := []State{st}

	sibling, ok := target.Sibling()
	if !ok || c.pending[sibling] {
		return changed
	}
	sib, known := c.states[sibling]
	if !known {
		sib = State{Target: sibling}
	}
	before := sib
	n, hasCount := counterFor(sibling.Reaction, result)
	if hasCount {
		sib.Count = n
	}
	if st.Active {
		sib.Active = false
	}
	if (known && sib == before) || (!known && !hasCount) {
		return changed
	}
	c.states[sibling] = sib
	return append(changed, sib)
}

// serverCount picks the authoritative count for reaction: the generic count
// field first, then the per-kind counter.
func serverCount(reaction string, result board.ReactionResult) (int, bool) {
	if result.Count != nil {
		return max(*result.Count, 0), true
	}
	return counterFor(reaction, result)
}

func counterFor(reaction string, result board.ReactionResult) (int, bool) {
	var p *int
	switch reaction {
	case board.ReactionLike:
		p = result.LikesCount
	case board.ReactionDislike:
		p = result.DislikesCount
	}
	if p == nil {
		return 0, false
	}
	return max(*p, 0), true
}

func failureMessage(err error) string {
	var rejected *board.RejectedError
	if errors.As(err, &rejected) {
		if rejected.Message != "" {
			return rejected.Message
		}
		return MessageRejected
	}
	var apiErr *board.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MessageNetworkError
}

func (c *Controller) changed(st State) {
	if c.listener != nil {
		c.listener.ReactionChanged(st)
	}
}
