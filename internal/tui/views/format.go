package views

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/presence"
)

// FormatPresence renders the peer header line: "online", "last seen 3
// minutes ago" or "offline" when nothing is known.
func FormatPresence(s presence.Snapshot, now time.Time) string {
	switch {
	case s.Online:
		return "online"
	case !s.LastSeen.IsZero():
		return "last seen " + humanize.RelTime(s.LastSeen, now, "ago", "from now")
	default:
		return "offline"
	}
}

func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02")
}

// statusMark is the delivery indicator drawn after own messages.
func statusMark(m model.Message) string {
	if m.Local {
		return "…"
	}
	switch m.Status {
	case model.StatusRead:
		return "✓✓"
	case model.StatusDelivered:
		return "✓"
	default:
		return "·"
	}
}
