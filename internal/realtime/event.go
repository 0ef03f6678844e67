// Package realtime is the push channel client: it dials the chat server's
// WebSocket endpoint and decodes its typed events.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/tidwall/gjson"
)

// Event type tags as sent by the server.
const (
	TypeMessageCreated   = "message_created"
	TypeMessageDelivered = "message_delivered"
	TypeMessageRead      = "message_read"
	TypePresenceUpdate   = "presence_update"
	TypePresenceSnapshot = "presence_snapshot"
	TypeReadAck          = "read_ack"
)

// ErrUnknownEvent is returned for envelopes whose type is missing or unknown.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one decoded push envelope.
type Event interface {
	Type() string
}

// MessageCreated announces a new message between two users.
type MessageCreated struct {
	ID          model.MessageID `json:"id"`
	From        model.UserID    `json:"from"`
	To          model.UserID    `json:"to"`
	Content     *string         `json:"content"`
	MessageType string          `json:"message_type"`
	File        *string         `json:"file"`
	CreatedAt   string          `json:"created_at"`
	Status      string          `json:"status"`
}

func (MessageCreated) Type() string { return TypeMessageCreated }

// Text returns the content or "" when absent.
func (m MessageCreated) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// FilePath returns the attachment path or "" when absent.
func (m MessageCreated) FilePath() string {
	if m.File == nil {
		return ""
	}
	return *m.File
}

// StatusChanged is a delivery or read receipt.
type StatusChanged struct {
	Kind        string          `json:"type"`
	ID          model.MessageID `json:"id"`
	Status      string          `json:"status"`
	DeliveredAt string          `json:"delivered_at,omitempty"`
	ReadAt      string          `json:"read_at,omitempty"`
}

func (s StatusChanged) Type() string { return s.Kind }

// NewStatus returns the status the receipt advances to. A receipt without a
// status field implies the status named by its type.
func (s StatusChanged) NewStatus() model.Status {
	if s.Status != "" {
		return model.NormalizeStatus(s.Status)
	}
	if s.Kind == TypeMessageRead {
		return model.StatusRead
	}
	return model.StatusDelivered
}

// PresenceUpdate reports one user's presence.
type PresenceUpdate struct {
	UserID   model.UserID `json:"user_id"`
	Online   bool         `json:"online"`
	LastSeen *string      `json:"last_seen"`
}

func (PresenceUpdate) Type() string { return TypePresenceUpdate }

// PresenceSnapshot lists every user currently online.
type PresenceSnapshot struct {
	OnlineUserIDs []model.UserID `json:"online_user_ids"`
}

func (PresenceSnapshot) Type() string { return TypePresenceSnapshot }

// Contains reports whether id is in the online set.
func (p PresenceSnapshot) Contains(id model.UserID) bool {
	for _, u := range p.OnlineUserIDs {
		if u == id {
			return true
		}
	}
	return false
}

// Decode parses one envelope. The type is peeked first so unknown events
// are rejected without a full decode.
func Decode(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("malformed event payload")
	}
	typ := gjson.GetBytes(raw, "type")
	if typ.Type != gjson.String {
		return nil, ErrUnknownEvent
	}

	var (
		evt Event
		err error
	)
	switch typ.Str {
	case TypeMessageCreated:
		var m MessageCreated
		err = json.Unmarshal(raw, &m)
		evt = m
	case TypeMessageDelivered, TypeMessageRead:
		var s StatusChanged
		err = json.Unmarshal(raw, &s)
		evt = s
	case TypePresenceUpdate:
		var p PresenceUpdate
		err = json.Unmarshal(raw, &p)
		evt = p
	case TypePresenceSnapshot:
		var p PresenceSnapshot
		err = json.Unmarshal(raw, &p)
		evt = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, typ.Str)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ.Str, err)
	}
	return evt, nil
}
