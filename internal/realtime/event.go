package realtime

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/muzz-match/internal/db"
)

// Event names pushed to clients.
const (
	EventNewMessage = "new_message"
	EventMatch      = "match"
	EventRead       = "read"
	EventJoined     = "joined"
)

// Event is one server-to-client push. Data is pre-encoded JSON so the same
// event can go through Redis, socket.io and gRPC unchanged.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent encodes v as the event payload.
func NewEvent(typ string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", typ, err)
	}
	return Event{Type: typ, Data: data}, nil
}

// MessageEvent wraps a stored message as a new_message event.
func MessageEvent(msg db.Message) (Event, error) {
	return NewEvent(EventNewMessage, msg)
}

// MatchPayload is sent to both users when their match is created.
type MatchPayload struct {
	MatchID   uint64 `json:"matchId"`
	PartnerID uint64 `json:"partnerId"`
}

// ReadPayload tells a sender that the partner has read their messages.
type ReadPayload struct {
	ReaderID uint64 `json:"readerId"`
	Count    int64  `json:"count"`
}

// Struct converts the event to the protobuf shape used on the gRPC stream:
// {"type": ..., "data": {...}}.
func (e Event) Struct() (*structpb.Struct, error) {
	var data any
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", e.Type, err)
		}
	}
	return structpb.NewStruct(map[string]any{"type": e.Type, "data": data})
}

// Envelope addresses an event to a set of users. It is the unit published
// between instances.
type Envelope struct {
	UserIDs []uint64 `json:"userIds"`
	Event   Event    `json:"event"`
}
