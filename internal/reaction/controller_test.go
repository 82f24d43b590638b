package reaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/state"
)

type reply struct {
	result board.ReactionResult
	err    error
}

// gatedAPI holds every request until the test releases a reply.
type gatedAPI struct {
	mu       sync.Mutex
	requests []board.ReactionRequest
	replies  chan reply
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{replies: make(chan reply, 4)}
}

func (a *gatedAPI) ToggleReaction(ctx context.Context, req board.ReactionRequest) (board.ReactionResult, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	select {
	case r := <-a.replies:
		return r.result, r.err
	case <-ctx.Done():
		return board.ReactionResult{}, ctx.Err()
	}
}

func (a *gatedAPI) Requests() []board.ReactionRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]board.ReactionRequest(nil), a.requests...)
}

type recorder struct {
	mu       sync.Mutex
	changes  []State
	acks     []board.ReactionAction
	levels   []state.Level
	messages []string
}

func (r *recorder) ReactionChanged(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, st)
}

func (r *recorder) ReactionAcknowledged(_ Target, action board.ReactionAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, action)
}

func (r *recorder) Notify(level state.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, message)
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) Acks() []board.ReactionAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]board.ReactionAction(nil), r.acks...)
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

var (
	postLike    = Target{Type: board.TargetPost, ID: "42", Reaction: board.ReactionLike}
	postDislike = Target{Type: board.TargetPost, ID: "42", Reaction: board.ReactionDislike}
)

func newController(t *testing.T) (*Controller, *gatedAPI, *recorder) {
	t.Helper()
	api := newGatedAPI()
	rec := &recorder{}
	c := New(api, "session-1", Options{Notifier: rec, Listener: rec})
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	return c, api, rec
}

func mustState(t *testing.T, c *Controller, target Target) State {
	t.Helper()
	st, ok := c.State(target)
	if !ok {
		t.Fatalf("no state for %s", target)
	}
	return st
}

func TestToggleAppliesServerCounts(t *testing.T) {
	c, api, rec := newController(t)
	c.Seed(State{Target: postLike, Count: 4}, State{Target: postDislike, Count: 1})

	if !c.Toggle(postLike) {
		t.Fatal("Toggle returned false")
	}
	if st := mustState(t, c, postLike); st.Count != 5 || !st.Active {
		t.Fatalf("optimistic state = %+v, want 5 active", st)
	}
	if !c.Pending(postLike) {
		t.Fatal("target not pending while request in flight")
	}

	api.replies <- reply{result: board.ReactionResult{
		Success: true, Action: board.ActionAdded, LikesCount: intp(5), DislikesCount: intp(1),
	}}
	c.Wait()

	if st := mustState(t, c, postLike); st.Count != 5 || !st.Active {
		t.Fatalf("final like = %+v, want 5 active", st)
	}
	if st := mustState(t, c, postDislike); st.Count != 1 || st.Active {
		t.Fatalf("dislike = %+v, want 1 inactive", st)
	}
	if c.Pending(postLike) {
		t.Fatal("target still pending after reply")
	}
	if acks := rec.Acks(); len(acks) != 1 || acks[0] != board.ActionAdded {
		t.Fatalf("acks = %v, want [added]", acks)
	}
	reqs := api.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	want := board.ReactionRequest{TargetType: board.TargetPost, TargetID: "42", ReactionType: "like", SessionID: "session-1"}
	if reqs[0] != want {
		t.Fatalf("request = %+v, want %+v", reqs[0], want)
	}
}

func TestToggleIgnoredWhilePending(t *testing.T) {
	c, api, _ := newController(t)

	if !c.Toggle(postLike) {
		t.Fatal("first Toggle returned false")
	}
	if c.Toggle(postLike) {
		t.Fatal("second Toggle while pending returned true")
	}
	if st := mustState(t, c, postLike); st.Count != 1 || !st.Active {
		t.Fatalf("state after double toggle = %+v, want 1 active", st)
	}

	// A different target is independent.
	if !c.Toggle(postDislike) {
		t.Fatal("Toggle on sibling returned false")
	}

	api.replies <- reply{result: board.ReactionResult{Success: true, Action: board.ActionAdded}}
	api.replies <- reply{result: board.ReactionResult{Success: true, Action: board.ActionAdded}}
	c.Wait()

	var likes int
	for _, req := range api.Requests() {
		if req.ReactionType == board.ReactionLike {
			likes++
		}
	}
	if likes != 1 {
		t.Fatalf("like requests = %d, want 1", likes)
	}
}

func TestToggleRollsBackOnRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &board.RejectedError{Message: "Invalid reaction type."}, "Invalid reaction type."},
		{"rejected without message", &board.RejectedError{}, MessageRejected},
		{"api error message", &board.APIError{Path: "/api/post/42/reaction/", Status: 400, Message: "Bad request."}, "Bad request."},
		{"transport failure", errors.New("dial tcp: connection refused"), MessageNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api, rec := newController(t)
			before := State{Target: postLike, Count: 3, Active: true}
			c.Seed(before)

			c.Toggle(postLike)
			if st := mustState(t, c, postLike); st.Count != 2 || st.Active {
				t.Fatalf("optimistic = %+v, want 2 inactive", st)
			}
			api.replies <- reply{err: tt.err}
			c.Wait()

			if st := mustState(t, c, postLike); st != before {
				t.Fatalf("after rollback = %+v, want %+v", st, before)
			}
			if c.Pending(postLike) {
				t.Fatal("target still pending after failure")
			}
			msgs := rec.Messages()
			if len(msgs) != 1 || msgs[0] != tt.want || rec.levels[0] != state.LevelError {
				t.Fatalf("notifications = %v, want error %q", msgs, tt.want)
			}
			if len(rec.Acks()) != 0 {
				t.Fatal("failure must not acknowledge")
			}
		})
	}
}

func TestToggleCountNeverNegative(t *testing.T) {
	c, api, _ := newController(t)
	c.Seed(State{Target: postLike, Count: 0, Active: true})

	c.Toggle(postLike)
	if st := mustState(t, c, postLike); st.Count != 0 || st.Active {
		t.Fatalf("optimistic = %+v, want 0 inactive", st)
	}
	api.replies <- reply{result: board.ReactionResult{Success: true, Action: board.ActionRemoved, LikesCount: intp(-2)}}
	c.Wait()
	if st := mustState(t, c, postLike); st.Count != 0 || st.Active {
		t.Fatalf("final = %+v, want 0 inactive", st)
	}
}

func TestServerValuesWin(t *testing.T) {
	tests := []struct {
		name       string
		result     board.ReactionResult
		wantCount  int
		wantActive bool
	}{
		{
			name:       "count beats per-kind counter",
			result:     board.ReactionResult{Success: true, Action: board.ActionAdded, Count: intp(9), LikesCount: intp(7)},
			wantCount:  9,
			wantActive: true,
		},
		{
			name:       "is_active beats action",
			result:     board.ReactionResult{Success: true, Action: board.ActionAdded, LikesCount: intp(3), IsActive: boolp(false)},
			wantCount:  3,
			wantActive: false,
		},
		{
			name:       "removed clears active",
			result:     board.ReactionResult{Success: true, Action: board.ActionRemoved, LikesCount: intp(10)},
			wantCount:  10,
			wantActive: false,
		},
		{
			name:       "changed sets active",
			result:     board.ReactionResult{Success: true, Action: board.ActionChanged, LikesCount: intp(2), DislikesCount: intp(0)},
			wantCount:  2,
			wantActive: true,
		},
		{
			name:       "no counters keeps optimistic",
			result:     board.ReactionResult{Success: true},
			wantCount:  1,
			wantActive: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api, _ := newController(t)
			c.Toggle(postLike)
			api.replies <- reply{result: tt.result}
			c.Wait()

			st := mustState(t, c, postLike)
			if st.Count != tt.wantCount || st.Active != tt.wantActive {
				t.Fatalf("state = %+v, want count %d active %v", st, tt.wantCount, tt.wantActive)
			}
		})
	}
}

func TestChangedDeactivatesSibling(t *testing.T) {
	c, api, _ := newController(t)
	c.Seed(State{Target: postLike, Count: 3}, State{Target: postDislike, Count: 2, Active: true})

	c.Toggle(postLike)
	api.replies <- reply{result: board.ReactionResult{
		Success: true, Action: board.ActionChanged, LikesCount: intp(4), DislikesCount: intp(1),
	}}
	c.Wait()

	if st := mustState(t, c, postLike); st.Count != 4 || !st.Active {
		t.Fatalf("like = %+v, want 4 active", st)
	}
	if st := mustState(t, c, postDislike); st.Count != 1 || st.Active {
		t.Fatalf("dislike = %+v, want 1 inactive", st)
	}
}

func TestReconcileUpdatesCountsOnly(t *testing.T) {
	c, _, rec := newController(t)
	c.Seed(State{Target: postLike, Count: 1, Active: true})

	c.Reconcile(board.ReactionUpdate{TargetType: board.TargetPost, TargetID: "42", LikesCount: intp(6), DislikesCount: intp(2)})

	if st := mustState(t, c, postLike); st.Count != 6 || !st.Active {
		t.Fatalf("like = %+v, want 6 active", st)
	}
	if st := mustState(t, c, postDislike); st.Count != 2 || st.Active {
		t.Fatalf("dislike = %+v, want 2 inactive", st)
	}
	before := len(rec.changes)
	c.Reconcile(board.ReactionUpdate{TargetType: board.TargetPost, TargetID: "42", LikesCount: intp(6)})
	if len(rec.changes) != before {
		t.Fatal("unchanged reconcile should not notify the listener")
	}
}

func TestReconcileSkipsPendingTarget(t *testing.T) {
	c, api, _ := newController(t)
	c.Seed(State{Target: postLike, Count: 1})

	c.Toggle(postLike)
	c.Reconcile(board.ReactionUpdate{TargetType: board.TargetPost, TargetID: "42", LikesCount: intp(50), DislikesCount: intp(5)})

	if st := mustState(t, c, postLike); st.Count != 2 || !st.Active {
		t.Fatalf("pending like = %+v, want optimistic 2 active", st)
	}
	if st := mustState(t, c, postDislike); st.Count != 5 {
		t.Fatalf("dislike = %+v, want 5", st)
	}

	api.replies <- reply{result: board.ReactionResult{Success: true, Action: board.ActionAdded, LikesCount: intp(51), DislikesCount: intp(5)}}
	c.Wait()
	if st := mustState(t, c, postLike); st.Count != 51 {
		t.Fatalf("like after reply = %+v, want 51", st)
	}
}

func TestSeedKeepsPendingTarget(t *testing.T) {
	c, api, _ := newController(t)

	c.Toggle(postLike)
	c.Seed(State{Target: postLike, Count: 0}, State{Target: postDislike, Count: 7})

	if st := mustState(t, c, postLike); st.Count != 1 || !st.Active {
		t.Fatalf("pending like = %+v, want 1 active", st)
	}
	if st := mustState(t, c, postDislike); st.Count != 7 {
		t.Fatalf("dislike = %+v, want 7", st)
	}
	api.replies <- reply{result: board.ReactionResult{Success: true, Action: board.ActionAdded}}
	c.Wait()

	states := c.States()
	if len(states) != 2 || states[0].Target != postDislike || states[1].Target != postLike {
		t.Fatalf("States() = %+v, want dislike then like", states)
	}
}

func TestCloseDiscardsLateResult(t *testing.T) {
	api := newGatedAPI()
	rec := &recorder{}
	c := New(api, "s", Options{Notifier: rec, Listener: rec})

	c.Toggle(postLike)
	c.Close()
	c.Wait()

	if st := mustState(t, c, postLike); st.Count != 1 || !st.Active {
		t.Fatalf("state after close = %+v, want optimistic value untouched", st)
	}
	if len(rec.Messages()) != 0 || len(rec.Acks()) != 0 {
		t.Fatal("closed controller reported a result")
	}
	if c.Toggle(postDislike) {
		t.Fatal("Toggle after Close returned true")
	}
}

type panickingAPI struct{}

func (panickingAPI) ToggleReaction(context.Context, board.ReactionRequest) (board.ReactionResult, error) {
	panic("boom")
}

func TestTogglePanicRollsBack(t *testing.T) {
	rec := &recorder{}
	c := New(panickingAPI{}, "s", Options{Notifier: rec})
	defer c.Close()

	c.Toggle(postLike)
	done := make(chan struct{})
	go func() { c.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("toggle did not finish")
	}
	if st := mustState(t, c, postLike); st.Count != 0 || st.Active {
		t.Fatalf("state = %+v, want rolled back", st)
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != MessageNetworkError {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestInvalidTargetIgnored(t *testing.T) {
	c, api, _ := newController(t)
	if c.Toggle(Target{Type: board.TargetPost, Reaction: "like"}) {
		t.Fatal("Toggle without id returned true")
	}
	if c.Toggle(Target{Type: "thread", ID: "1", Reaction: "like"}) {
		t.Fatal("Toggle with bad type returned true")
	}
	if len(api.Requests()) != 0 {
		t.Fatal("invalid target sent a request")
	}
}

func TestNewTarget(t *testing.T) {
	got, err := NewTarget(" Comment ", " 9 ", "LIKE")
	if err != nil {
		t.Fatalf("NewTarget returned error: %v", err)
	}
	want := Target{Type: board.TargetComment, ID: "9", Reaction: "like"}
	if got != want {
		t.Fatalf("NewTarget = %+v, want %+v", got, want)
	}
	if got.String() != "comment/9/like" {
		t.Fatalf("String() = %q", got.String())
	}
	if _, err := NewTarget("post", "", "like"); err == nil {
		t.Fatal("expected error for empty id")
	}
	if sib, ok := want.Sibling(); !ok || sib.Reaction != "dislike" {
		t.Fatalf("Sibling = %+v, %v", sib, ok)
	}
	if _, ok := (Target{Type: board.TargetPost, ID: "1", Reaction: "heart"}).Sibling(); ok {
		t.Fatal("custom reaction should have no sibling")
	}
}

func TestStateConversions(t *testing.T) {
	rc := board.ReactionCount{TargetType: board.TargetPost, TargetID: "3", Reaction: "like", Count: 2, Active: true}
	st := FromCount(rc)
	if st.Target != (Target{Type: board.TargetPost, ID: "3", Reaction: "like"}) || st.Count != 2 || !st.Active {
		t.Fatalf("FromCount = %+v", st)
	}
	if st.ReactionCount() != rc {
		t.Fatalf("ReactionCount() = %+v, want %+v", st.ReactionCount(), rc)
	}
}
