package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a server-originated update.
type Kind int

const (
	KindUnknown Kind = iota
	KindNewPost
	KindNewComment
	KindReactionChanged
)

// Wire names of update kinds, shared by check-updates and push frames.
const (
	wireNewPost        = "new_post"
	wireNewComment     = "new_comment"
	wireReactionUpdate = "reaction_update"
	wirePing           = "ping"
	wirePong           = "pong"
)

// ParseKind maps a wire type string to a Kind.
func ParseKind(raw string) Kind {
	switch strings.TrimSpace(raw) {
	case wireNewPost:
		return KindNewPost
	case wireNewComment:
		return KindNewComment
	case wireReactionUpdate:
		return KindReactionChanged
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindNewPost:
		return wireNewPost
	case KindNewComment:
		return wireNewComment
	case KindReactionChanged:
		return wireReactionUpdate
	default:
		return "unknown"
	}
}

// Update is a discrete server-originated fact delivered to the client.
// Payload holds the complete JSON object the update arrived in.
type Update struct {
	Kind    Kind
	RawKind string
	Payload json.RawMessage
}

// ErrMalformedUpdate is returned when an update is not a JSON object with a
// string "type" field.
var ErrMalformedUpdate = errors.New("malformed update")

// DecodeUpdate parses one update object.
func DecodeUpdate(raw []byte) (Update, error) {
	var envelope struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}
	if envelope.Type == nil {
		return Update{}, fmt.Errorf("%w: missing type", ErrMalformedUpdate)
	}
	payload := make(json.RawMessage, len(raw))
	copy(payload, raw)
	return Update{
		Kind:    ParseKind(*envelope.Type),
		RawKind: *envelope.Type,
		Payload: payload,
	}, nil
}

// IsControl reports whether a push frame type is a liveness control message
// rather than an update.
func IsControl(rawKind string) bool {
	switch rawKind {
	case wirePing, wirePong:
		return true
	}
	return false
}

// PingFrame is the only frame the client sends on a push connection.
func PingFrame() []byte {
	return []byte(`{"type":"ping"}`)
}

// TargetType is the entity a reaction applies to.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// ParseTargetType validates a target type string.
func ParseTargetType(raw string) (TargetType, error) {
	switch TargetType(strings.ToLower(strings.TrimSpace(raw))) {
	case TargetPost:
		return TargetPost, nil
	case TargetComment:
		return TargetComment, nil
	}
	return "", fmt.Errorf("unknown target type %q", raw)
}

// Reaction kinds the server keeps dedicated counters for.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// ReactionUpdate is the payload of a reaction_update, describing another
// session's change to an entity's counters.
type ReactionUpdate struct {
	TargetType    TargetType `json:"target_type"`
	TargetID      string     `json:"target_id"`
	LikesCount    *int       `json:"likes_count"`
	DislikesCount *int       `json:"dislikes_count"`
}

// ReactionUpdate decodes the update payload. Push frames wrap the body in a
// "data" object; check-updates entries carry the fields at the top level.
func (u Update) ReactionUpdate() (ReactionUpdate, error) {
	if u.Kind != KindReactionChanged {
		return ReactionUpdate{}, fmt.Errorf("update kind %s is not a reaction update", u.Kind)
	}
	var wrapped struct {
		reactionUpdateWire
		Data *reactionUpdateWire `json:"data"`
	}
	if err := json.Unmarshal(u.Payload, &wrapped); err != nil {
		return ReactionUpdate{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}
	wire := wrapped.reactionUpdateWire
	if strings.TrimSpace(string(wire.TargetID)) == "" && wrapped.Data != nil {
		wire = *wrapped.Data
	}
	out := ReactionUpdate{
		TargetType:    wire.TargetType,
		TargetID:      strings.TrimSpace(string(wire.TargetID)),
		LikesCount:    wire.LikesCount,
		DislikesCount: wire.DislikesCount,
	}
	if out.TargetID == "" {
		return ReactionUpdate{}, fmt.Errorf("%w: reaction update without target_id", ErrMalformedUpdate)
	}
	if out.TargetType == "" {
		out.TargetType = TargetPost
	}
	if _, err := ParseTargetType(string(out.TargetType)); err != nil {
		return ReactionUpdate{}, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}
	return out, nil
}

// reactionUpdateWire tolerates numeric ids; push payloads are relayed from
// other clients verbatim.
type reactionUpdateWire struct {
	TargetType    TargetType `json:"target_type"`
	TargetID      flexID     `json:"target_id"`
	LikesCount    *int       `json:"likes_count"`
	DislikesCount *int       `json:"dislikes_count"`
}

// flexID decodes a JSON string or number into its string form.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("target id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// UpdateBatch is the result of one check-updates request.
type UpdateBatch struct {
	Updates   []Update
	Malformed int
}

// checkUpdatesResponse mirrors GET /api/check-updates/.
type checkUpdatesResponse struct {
	HasUpdates bool              `json:"has_updates"`
	Updates    []json.RawMessage `json:"updates"`
}

// ReactionRequest is the body of a reaction toggle.
type ReactionRequest struct {
	TargetType   TargetType `json:"-"`
	TargetID     string     `json:"-"`
	ReactionType string     `json:"reaction_type"`
	SessionID    string     `json:"session_id"`
}

// ReactionAction is what the server did in response to a toggle.
type ReactionAction string

const (
	ActionAdded   ReactionAction = "added"
	ActionRemoved ReactionAction = "removed"
	ActionChanged ReactionAction = "changed"
)

// ReactionResult mirrors the reaction toggle response. Pointer fields are
// absent when the server did not send them.
type ReactionResult struct {
	Success       bool           `json:"success"`
	Action        ReactionAction `json:"action"`
	LikesCount    *int           `json:"likes_count"`
	DislikesCount *int           `json:"dislikes_count"`
	Count         *int           `json:"count"`
	IsActive      *bool          `json:"is_active"`
	Error         string         `json:"error"`
}

// DeleteResult mirrors POST /api/post/{id}/delete/.
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrRejected marks a mutation the server refused with success:false.
var ErrRejected = errors.New("rejected by server")

// RejectedError carries the server's message for a refused mutation.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejected, e.Message)
}

// Is lets errors.Is match ErrRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// APIError reports a non-2xx response.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}
