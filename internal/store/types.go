package store

// Outbox entry states.
const (
	OutboxQueued  = "queued"
	OutboxSending = "sending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxEntry represents an outgoing message submission.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	PeerID       int64
	Kind         string
	Body         string
	FileName     string
	Status       string
	ErrorMessage string
	ServerMsgID  string
	CreatedAt    int64
}

// ContactRow is a cached user profile.
type ContactRow struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}
