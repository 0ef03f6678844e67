package bus

import "time"

// Event kinds published by chatsync components. Subscribers filter by
// namespace prefix, e.g. "unread." or "message.".
const (
	KindUnreadChanged       = "unread.changed"
	KindNotifyMessage       = "notify.message"
	KindStreamStateChanged  = "stream.state_changed"
	KindConversationUpdated = "conversation.updated"
	KindMessageSendAck      = "message.send_ack"
	KindMessageSendFailed   = "message.send_failed"
	KindContactsRefreshed   = "contacts.refreshed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
