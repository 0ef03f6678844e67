package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID identifies a backend user. Zero means "none".
type UserID int64

// Valid reports whether the id names a user.
func (id UserID) Valid() bool { return id > 0 }

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (id *UserID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %s", data)
	}
	*id = UserID(n)
	return nil
}

// ParseUserID parses a decimal user id.
func ParseUserID(s string) (UserID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return UserID(n), nil
}

// MessageID is a server-assigned message id rendered as a string, or a
// locally minted one for optimistic entries.
type MessageID string

const localPrefix = "local-"

// LocalMessageID builds a temporary id for an optimistic entry.
func LocalMessageID(suffix string) MessageID { return MessageID(localPrefix + suffix) }

// IsLocal reports whether the id was minted on this client.
func (id MessageID) IsLocal() bool { return strings.HasPrefix(string(id), localPrefix) }

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid message id %s", data)
	}
	*id = MessageID(n.String())
	return nil
}

// Kind is the payload kind of a message.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// NormalizeKind maps unknown or empty kinds to text.
func NormalizeKind(s string) Kind {
	switch Kind(s) {
	case KindAudio, KindVideo:
		return Kind(s)
	default:
		return KindText
	}
}

// IsMedia reports whether the kind carries an attachment.
func (k Kind) IsMedia() bool { return k == KindAudio || k == KindVideo }

// Status is the delivery status of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Rank orders statuses; unknown statuses rank as sent.
func (s Status) Rank() int {
	switch s {
	case StatusRead:
		return 3
	case StatusDelivered:
		return 2
	default:
		return 1
	}
}

// NormalizeStatus maps unknown or empty statuses to sent.
func NormalizeStatus(s string) Status {
	switch Status(s) {
	case StatusDelivered, StatusRead:
		return Status(s)
	default:
		return StatusSent
	}
}

// Advance returns the later of s and next. Status never moves backward.
func (s Status) Advance(next Status) Status {
	if next.Rank() > s.Rank() {
		return next
	}
	return s.normalized()
}

func (s Status) normalized() Status { return NormalizeStatus(string(s)) }

// Message is a normalized conversation entry.
type Message struct {
	ID        MessageID
	Sender    UserID
	Receiver  UserID
	Kind      Kind
	Content   string
	URL       string
	CreatedAt time.Time
	Status    Status
	Mine      bool
	Local     bool
}

// Preview returns a short single-line rendering of the message body.
func (m Message) Preview() string {
	if m.Kind.IsMedia() {
		return "[" + string(m.Kind) + "]"
	}
	return strings.Join(strings.Fields(m.Content), " ")
}

// Contact is a user profile shown in the contact list.
type Contact struct {
	ID        UserID `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName returns "First Last", falling back to the email.
func (c Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return c.ID.String()
}
