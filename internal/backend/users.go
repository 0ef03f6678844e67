package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matheus3301/chatsync/internal/model"
)

// Profile is a single user as returned by /users/<id>/. Presence fields are
// optional on the wire; HasOnline and HasLastSeen record their presence.
type Profile struct {
	model.Contact
	Online      bool
	HasOnline   bool
	LastSeen    time.Time
	HasLastSeen bool
}

// UnmarshalJSON keeps track of which optional presence keys were sent.
func (p *Profile) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &p.Contact); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if raw, ok := keys["online"]; ok {
		p.HasOnline = true
		var online *bool
		if err := json.Unmarshal(raw, &online); err == nil && online != nil {
			p.Online = *online
		}
	}
	if raw, ok := keys["last_seen"]; ok {
		p.HasLastSeen = true
		var s *string
		if err := json.Unmarshal(raw, &s); err == nil && s != nil {
			p.LastSeen = ParseTime(*s)
		}
	}
	return nil
}

// ListUsers returns every other user.
func (c *Client) ListUsers(ctx context.Context) ([]model.Contact, error) {
	var out []model.Contact
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one profile, including any presence fields the server sent.
func (c *Client) GetUser(ctx context.Context, id model.UserID) (*Profile, error) {
	var p Profile
	path := fmt.Sprintf("/users/%d/", id)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseTime accepts the server's ISO-8601 timestamps. Unparseable input
// yields the zero time.
func ParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
