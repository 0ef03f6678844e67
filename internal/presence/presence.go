// Package presence merges the peer's presence signals into one online flag.
//
// Explicit signals (profile poll, push update, push snapshot, a message from
// the peer) are applied as they arrive. The fallback recompute derives the
// flag from last-seen, but only when no explicit signal arrived within the
// gap; it never overrides a fresh explicit signal.
package presence

import "time"

// Defaults.
const (
	DefaultWindow = 60 * time.Second
	DefaultGap    = 15 * time.Second
)

// Source names where the current online flag came from.
type Source int

const (
	SourceNone Source = iota
	SourcePoll
	SourcePush
	SourceSnapshot
	SourceMessage
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourcePoll:
		return "poll"
	case SourcePush:
		return "push"
	case SourceSnapshot:
		return "snapshot"
	case SourceMessage:
		return "message"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Explicit reports whether the source is a direct signal.
func (s Source) Explicit() bool {
	return s != SourceNone && s != SourceFallback
}

// Snapshot is a read-only view of the peer's presence.
type Snapshot struct {
	Online   bool
	LastSeen time.Time // zero when unknown
	Source   Source
}

// State is the presence of the open peer. It is not safe for concurrent use;
// the owning conversation serializes access.
type State struct {
	window time.Duration
	gap    time.Duration

	online       bool
	lastSeen     time.Time
	source       Source
	lastExplicit time.Time
}

// New returns an offline state. Non-positive durations use the defaults.
func New(window, gap time.Duration) *State {
	if window <= 0 {
		window = DefaultWindow
	}
	if gap <= 0 {
		gap = DefaultGap
	}
	return &State{window: window, gap: gap}
}

// Reset forgets everything, leaving the peer offline with no last-seen.
func (s *State) Reset() {
	s.online = false
	s.lastSeen = time.Time{}
	s.source = SourceNone
	s.lastExplicit = time.Time{}
}

// Snapshot returns the current view.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Online: s.online, LastSeen: s.lastSeen, Source: s.source}
}

// ApplyProfile applies a profile poll. Only the keys the server actually
// sent are applied; a present but null last-seen clears it.
func (s *State) ApplyProfile(hasOnline, online, hasLastSeen bool, lastSeen, now time.Time) {
	if hasLastSeen {
		s.lastSeen = lastSeen
	}
	if hasOnline {
		s.explicit(online, SourcePoll, now)
	}
}

// ApplyUpdate applies a push presence update. A zero lastSeen clears it.
func (s *State) ApplyUpdate(online bool, lastSeen, now time.Time) {
	s.lastSeen = lastSeen
	s.explicit(online, SourcePush, now)
}

// ApplySnapshot marks the peer online because it appeared in the online
// set. Last-seen is untouched.
func (s *State) ApplySnapshot(now time.Time) {
	s.explicit(true, SourceSnapshot, now)
}

// MarkActive records that the peer just sent a message.
func (s *State) MarkActive(now time.Time) {
	s.lastSeen = now
	s.explicit(true, SourceMessage, now)
}

// Recompute derives the flag from last-seen. It is a no-op when last-seen
// is unknown or an explicit signal arrived less than the gap ago. Reports
// whether the flag changed.
func (s *State) Recompute(now time.Time) bool {
	if s.lastSeen.IsZero() {
		return false
	}
	if !s.lastExplicit.IsZero() && now.Sub(s.lastExplicit) < s.gap {
		return false
	}
	online := now.Sub(s.lastSeen) < s.window
	changed := online != s.online
	s.online = online
	s.source = SourceFallback
	return changed
}

func (s *State) explicit(online bool, src Source, now time.Time) {
	s.online = online
	s.source = src
	s.lastExplicit = now
}
