package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/clock"
	"github.com/five82/boardsync/internal/dispatch"
	"github.com/five82/boardsync/internal/reaction"
	"github.com/five82/boardsync/internal/state"
	"github.com/five82/boardsync/internal/transport"
)

const rootPage = `<html><head><title>Board</title></head><body>
<ul>
  <li><a href="/post/1/">Lunch menu</a>
    <button class="btn btn-outline-success" data-post-id="1" data-reaction-type="like"><span class="reaction-count">4</span></button>
    <button class="btn btn-outline-danger" data-post-id="1" data-reaction-type="dislike"><span class="reaction-count">1</span></button>
  </li>
  <li><a href="/post/2/">Parking</a></li>
</ul>
</body></html>`

const rootPageWithNewPost = `<html><head><title>Board</title></head><body>
<ul>
  <li><a href="/post/3/">Fresh</a></li>
  <li><a href="/post/1/">Lunch menu</a></li>
  <li><a href="/post/2/">Parking</a></li>
</ul>
</body></html>`

const detailPage = `<html><head><title>Lunch menu</title></head><body>
<button class="btn btn-outline-success" data-post-id="1" data-reaction-type="like">4</button>
<div class="comment" data-comment-id="7">
  <button class="btn btn-outline-success" data-reaction-type="like"><span class="reaction-count">2</span></button>
</div>
</body></html>`

type fakeBoard struct {
	mu        sync.Mutex
	pages     map[string]string
	failPages bool
	updates   []string
	csrf      []string
	reactions []map[string]string
	pushFrame string
}

func (fb *fakeBoard) setPage(path, html string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.pages[path] = html
}

func (fb *fakeBoard) queueUpdate(raw string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.updates = append(fb.updates, raw)
}

func newFakeBoard(t *testing.T) (*fakeBoard, *httptest.Server) {
	t.Helper()
	fb := &fakeBoard{pages: map[string]string{"/": rootPage, "/post/1/": detailPage}}
	upgrader := websocket.Upgrader{}

	r := mux.NewRouter()
	servePage := func(w http.ResponseWriter, req *http.Request) {
		fb.mu.Lock()
		html, ok := fb.pages[req.URL.Path]
		fail := fb.failPages
		fb.mu.Unlock()
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, req)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-1", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}
	r.HandleFunc("/", servePage).Methods(http.MethodGet)
	r.HandleFunc("/post/{id}/", servePage).Methods(http.MethodGet)

	r.HandleFunc("/api/check-updates/", func(w http.ResponseWriter, req *http.Request) {
		fb.mu.Lock()
		updates := fb.updates
		fb.updates = nil
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"has_updates": ` + boolJSON(len(updates) > 0) + `, "updates": [` + strings.Join(updates, ",") + `]}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/{target}/{id}/reaction/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		fb.mu.Lock()
		fb.csrf = append(fb.csrf, req.Header.Get("X-CSRFToken"))
		fb.reactions = append(fb.reactions, body)
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if body["reaction_type"] == "bogus" {
			_, _ = w.Write([]byte(`{"success": false, "error": "invalid reaction type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "action": "added", "likes_count": 5, "dislikes_count": 1}`))
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/post/{id}/delete/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if mux.Vars(req)["id"] == "locked" {
			_, _ = w.Write([]byte(`{"success": false, "error": "cannot delete"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	}).Methods(http.MethodPost)

	r.HandleFunc("/ws/board/", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fb.mu.Lock()
		frame := fb.pushFrame
		fb.mu.Unlock()
		if frame != "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return fb, server
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newTestEngine(t *testing.T, server *httptest.Server, view string, opts EngineOptions) (*Engine, *clock.Fake) {
	t.Helper()
	client, err := board.NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	fake := clock.NewFake()
	opts.Clock = fake
	if opts.SessionID == "" {
		opts.SessionID = "sess-1"
	}
	if opts.Mode == transport.ModePush {
		opts.PushURL = client.PushURL()
		opts.Dialer = transport.WebSocketDialer{Jar: client.Jar()}
	}
	e, err := NewEngine(client, state.NewStore(view), opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Stop)
	return e, fake
}

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

func hasNotification(store *state.Store, message string) bool {
	for _, n := range store.Snapshot().Notifications {
		if n.Message == message {
			return true
		}
	}
	return false
}

func TestEngineRefreshSeedsPageAndReactions(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})

	e.Refresh()

	snap := e.Store().Snapshot()
	if !snap.HasPage || len(snap.Page.Posts) != 2 || snap.Page.Title != "Board" {
		t.Fatalf("page = %+v", snap.Page)
	}
	like, ok := snap.Reaction(board.TargetPost, "1", "like")
	if !ok || like.Count != 4 || like.Active {
		t.Fatalf("like = %+v, %v", like, ok)
	}
	if snap.SessionID != "sess-1" {
		t.Fatalf("SessionID = %q", snap.SessionID)
	}
}

func TestEnginePollingNewPostRefreshesRoot(t *testing.T) {
	fb, server := newFakeBoard(t)
	e, fake := newTestEngine(t, server, "/", EngineOptions{})

	e.Start()
	e.Refresh()
	snap := e.Store().Snapshot()
	if snap.Connection != transport.Open || snap.Indicator.Text != "Live updates active" {
		t.Fatalf("connection = %v, indicator %+v", snap.Connection, snap.Indicator)
	}

	fb.queueUpdate(`{"type": "new_post", "post_id": "3"}`)
	fb.setPage("/", rootPageWithNewPost)
	fake.Advance(transport.DefaultPollInterval)

	waitFor(t, "new post toast", func() bool { return hasNotification(e.Store(), dispatch.MessageNewPost) })
	waitFor(t, "scheduled refresh", e.dispatcher.RefreshPending)

	if got := len(e.Store().Snapshot().Page.Posts); got != 2 {
		t.Fatalf("page refreshed before the delay: %d posts", got)
	}
	fake.Advance(dispatch.RefreshDelay)

	if got := len(e.Store().Snapshot().Page.Posts); got != 3 {
		t.Fatalf("posts after refresh = %d, want 3", got)
	}
}

func TestEngineReconcilesReactionUpdate(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})
	e.Refresh()

	update, err := board.DecodeUpdate([]byte(`{"type": "reaction_update", "target_type": "post", "target_id": "1", "likes_count": 9, "dislikes_count": 2}`))
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}
	e.HandleUpdate(update)

	snap := e.Store().Snapshot()
	like, _ := snap.Reaction(board.TargetPost, "1", "like")
	dislike, _ := snap.Reaction(board.TargetPost, "1", "dislike")
	if like.Count != 9 || dislike.Count != 2 {
		t.Fatalf("like/dislike = %d/%d, want 9/2", like.Count, dislike.Count)
	}
}

func TestEngineReactUsesServerValues(t *testing.T) {
	fb, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})
	e.Refresh()

	target := reaction.Target{Type: board.TargetPost, ID: "1", Reaction: "like"}
	st, err := e.React(target)
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if st.Count != 5 || !st.Active {
		t.Fatalf("state = %+v, want 5 active", st)
	}

	snap := e.Store().Snapshot()
	if like, _ := snap.Reaction(board.TargetPost, "1", "like"); like.Count != 5 || !like.Active {
		t.Fatalf("store like = %+v", like)
	}
	if dislike, _ := snap.Reaction(board.TargetPost, "1", "dislike"); dislike.Count != 1 {
		t.Fatalf("store dislike = %+v", dislike)
	}
	if n, ok := snap.LatestNotification(); !ok || n.Level != state.LevelSuccess {
		t.Fatalf("latest notification = %+v", n)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.reactions) != 1 || fb.reactions[0]["session_id"] != "sess-1" || fb.reactions[0]["reaction_type"] != "like" {
		t.Fatalf("reaction bodies = %+v", fb.reactions)
	}
	if fb.csrf[0] != "tok-1" {
		t.Fatalf("X-CSRFToken = %q, want tok-1", fb.csrf[0])
	}
}

func TestEngineReactRejectedRollsBack(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})
	e.Refresh()

	target := reaction.Target{Type: board.TargetPost, ID: "1", Reaction: "bogus"}
	st, err := e.React(target)
	if err == nil || err.Error() != "invalid reaction type" {
		t.Fatalf("React error = %v, want the server message", err)
	}
	if st.Count != 0 || st.Active {
		t.Fatalf("state after rollback = %+v", st)
	}
	if !hasNotification(e.Store(), "invalid reaction type") {
		t.Fatal("rejection not shown to the user")
	}
}

func TestEngineDeletePost(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/post/1/", EngineOptions{})
	e.Refresh()

	if err := e.DeletePost(context.Background(), "locked"); err == nil {
		t.Fatal("DeletePost(locked) returned nil error")
	}
	if !hasNotification(e.Store(), "cannot delete") || e.View() != "/post/1/" {
		t.Fatalf("failed delete: view %q, notifications %+v", e.View(), e.Store().Snapshot().Notifications)
	}

	if err := e.DeletePost(context.Background(), "1"); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	snap := e.Store().Snapshot()
	if !hasNotification(e.Store(), MessagePostDeleted) || snap.View != "/" || snap.Page.Title != "Board" {
		t.Fatalf("after delete: view %q, page %q", snap.View, snap.Page.Title)
	}
}

func TestEngineRefreshFailureKeepsPage(t *testing.T) {
	fb, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})
	e.Refresh()

	fb.mu.Lock()
	fb.failPages = true
	fb.mu.Unlock()
	e.Refresh()
	e.Refresh()

	snap := e.Store().Snapshot()
	if !snap.HasPage || snap.Page.Title != "Board" {
		t.Fatal("previous page was dropped")
	}
	if snap.LastError == nil || !snap.IsOffline() {
		t.Fatalf("LastError = %v, failures = %d", snap.LastError, snap.ConsecutiveFailures)
	}
}

func TestEngineNavigateLoadsDetail(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})

	e.Navigate("/post/1/")

	snap := e.Store().Snapshot()
	if snap.View != "/post/1/" || snap.Page.Title != "Lunch menu" {
		t.Fatalf("view %q page %q", snap.View, snap.Page.Title)
	}
	if c, ok := snap.Reaction(board.TargetComment, "7", "like"); !ok || c.Count != 2 {
		t.Fatalf("comment like = %+v, %v", c, ok)
	}
}

func TestEngineHandleStatusDrivesIndicator(t *testing.T) {
	_, server := newFakeBoard(t)
	e, _ := newTestEngine(t, server, "/", EngineOptions{})

	e.HandleStatus(transport.Reconnecting)

	snap := e.Store().Snapshot()
	if snap.Connection != transport.Reconnecting || snap.Indicator.Label() != "↻ Reconnecting..." {
		t.Fatalf("connection %v indicator %+v", snap.Connection, snap.Indicator)
	}
}

func TestEnginePushNewCommentOnDetail(t *testing.T) {
	fb, server := newFakeBoard(t)
	fb.pushFrame = `{"type": "new_comment", "message": "hi"}`
	e, fake := newTestEngine(t, server, "/post/1/", EngineOptions{Mode: transport.ModePush})

	e.Start()
	waitFor(t, "push open", func() bool { return e.Store().Snapshot().Connection == transport.Open })
	waitFor(t, "new comment toast", func() bool { return hasNotification(e.Store(), dispatch.MessageNewComment) })
	waitFor(t, "scheduled refresh", e.dispatcher.RefreshPending)

	fake.Advance(dispatch.RefreshDelay)
	if snap := e.Store().Snapshot(); snap.Page.Title != "Lunch menu" {
		t.Fatalf("page after refresh = %q", snap.Page.Title)
	}

	e.Stop()
	if got := e.Store().Snapshot().Connection; got != transport.Closed {
		t.Fatalf("connection after Stop = %v, want closed", got)
	}
	e.Stop()
}

func TestEngineStopCancelsTimers(t *testing.T) {
	_, server := newFakeBoard(t)
	e, fake := newTestEngine(t, server, "/", EngineOptions{})
	e.Start()
	if fake.Pending() == 0 {
		t.Fatal("polling timer not scheduled")
	}
	e.Stop()
	if fake.Pending() != 0 {
		t.Fatalf("pending timers after Stop = %d", fake.Pending())
	}
}

func TestNewEngineValidates(t *testing.T) {
	_, server := newFakeBoard(t)
	client, _ := board.NewClient(server.URL)

	if _, err := NewEngine(client, state.NewStore("/"), EngineOptions{Mode: transport.ModePush}); err == nil {
		t.Fatal("push without a dialer should fail")
	}
	if _, err := NewEngine(client, state.NewStore("/"), EngineOptions{Mode: "carrier"}); err == nil {
		t.Fatal("unknown mode should fail")
	}
	if _, err := NewEngine(nil, state.NewStore("/"), EngineOptions{}); err == nil {
		t.Fatal("nil api should fail")
	}
}

func TestDeleteFailureMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&board.RejectedError{Message: "nope"}, "nope"},
		{&board.RejectedError{}, MessageDeleteFailed},
		{&board.APIError{Path: "/x", Status: 403, Message: "forbidden"}, "forbidden"},
		{context.DeadlineExceeded, MessageDeleteFailed},
	}
	for _, tt := range tests {
		if got := deleteFailureMessage(tt.err); got != tt.want {
			t.Fatalf("deleteFailureMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
