package realtime

import (
	"errors"
	"testing"

	"github.com/matheus3301/chatsync/internal/model"
)

func TestDecodeMessageCreated(t *testing.T) {
	evt, err := Decode([]byte(`{"type":"message_created","id":7,"from":2,"to":"1","content":"hi","message_type":"text","file":null,"created_at":"2024-05-01T10:00:00Z","status":"sent"}`))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := evt.(MessageCreated)
	if !ok {
		t.Fatalf("event = %T", evt)
	}
	if m.ID != "7" || m.From != 2 || m.To != 1 || m.Text() != "hi" || m.FilePath() != "" {
		t.Errorf("message = %+v", m)
	}
}

func TestDecodeReceipts(t *testing.T) {
	evt, err := Decode([]byte(`{"type":"message_read","id":"7","read_at":"2024-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	s := evt.(StatusChanged)
	if s.Type() != TypeMessageRead || s.NewStatus() != model.StatusRead {
		t.Errorf("receipt = %+v", s)
	}

	evt, _ = Decode([]byte(`{"type":"message_delivered","id":7,"status":"delivered"}`))
	if evt.(StatusChanged).NewStatus() != model.StatusDelivered {
		t.Errorf("delivered receipt = %+v", evt)
	}
}

func TestDecodePresence(t *testing.T) {
	evt, err := Decode([]byte(`{"type":"presence_update","user_id":3,"online":false,"last_seen":"2024-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	p := evt.(PresenceUpdate)
	if p.UserID != 3 || p.Online || p.LastSeen == nil {
		t.Errorf("update = %+v", p)
	}

	evt, err = Decode([]byte(`{"type":"presence_snapshot","online_user_ids":[1,5,9]}`))
	if err != nil {
		t.Fatal(err)
	}
	snap := evt.(PresenceSnapshot)
	if !snap.Contains(5) || snap.Contains(2) {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"type":`,
		"no type":       `{"id":1}`,
		"numeric type":  `{"type":5}`,
		"unknown type":  `{"type":"typing"}`,
		"bad field":     `{"type":"message_created","from":"abc"}`,
		"array payload": `[1,2]`,
		"empty":         ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			evt, err := Decode([]byte(raw))
			if err == nil {
				t.Fatalf("Decode(%q) = %+v, want error", raw, evt)
			}
		})
	}

	if _, err := Decode([]byte(`{"type":"typing"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
}
