// Package conversation holds the view state of the open conversation:
// its peer, its duplicate-free message list and the peer's presence.
//
// Every write carries the generation it was issued for. Opening another
// conversation bumps the generation, so results of work started for an
// earlier peer are discarded instead of leaking into the new view.
package conversation

import (
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/presence"
)

// Generation identifies one opening of a conversation.
type Generation uint64

// View is an immutable copy of the state handed to renderers.
type View struct {
	Generation Generation
	Peer       model.UserID
	Messages   []model.Message
	Presence   presence.Snapshot
}

// State is safe for concurrent use.
type State struct {
	mu       sync.Mutex
	gen      Generation
	peer     model.UserID
	messages []model.Message
	index    map[model.MessageID]int

	// pending holds optimistic ids whose submission is still in flight.
	pending map[model.MessageID]bool
	// live holds pushed ids the last history fetch did not include yet.
	live map[model.MessageID]bool

	presence *presence.State
}

// New returns an empty state with no open peer.
func New(window, gap time.Duration) *State {
	return &State{
		index:    make(map[model.MessageID]int),
		pending:  make(map[model.MessageID]bool),
		live:     make(map[model.MessageID]bool),
		presence: presence.New(window, gap),
	}
}

// Switch opens peer (zero closes) and returns the new generation. Messages
// and presence are reset immediately.
func (s *State) Switch(peer model.UserID) Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.peer = peer
	s.messages = nil
	s.index = make(map[model.MessageID]int)
	s.pending = make(map[model.MessageID]bool)
	s.live = make(map[model.MessageID]bool)
	s.presence.Reset()
	return s.gen
}

// Current returns the live generation and its peer.
func (s *State) Current() (Generation, model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, s.peer
}

// Peer returns the open peer, zero when none.
func (s *State) Peer() model.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Valid reports whether gen is still the live generation.
func (s *State) Valid(gen Generation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked(gen)
}

func (s *State) validLocked(gen Generation) bool {
	return gen == s.gen && s.peer.Valid()
}

// ReplaceHistory installs a fetched history. Entries already shown keep the
// later of the two statuses. Optimistic entries still in flight and pushed
// entries the server has not listed yet are kept after the history. Returns
// false when gen is stale.
func (s *State) ReplaceHistory(gen Generation, history []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}

	next := make([]model.Message, 0, len(history)+len(s.pending))
	index := make(map[model.MessageID]int, len(history))
	for _, m := range history {
		if _, dup := index[m.ID]; dup {
			continue
		}
		if i, ok := s.index[m.ID]; ok {
			m.Status = s.messages[i].Status.Advance(m.Status)
		}
		index[m.ID] = len(next)
		next = append(next, m)
		delete(s.live, m.ID)
	}

	for _, m := range s.messages {
		if _, ok := index[m.ID]; ok {
			continue
		}
		keep := (m.Local && s.pending[m.ID]) || (!m.Local && s.live[m.ID])
		if !keep {
			continue
		}
		index[m.ID] = len(next)
		next = append(next, m)
	}

	s.messages = next
	s.index = index
	return true
}

// Append adds a pushed message unless its id is already shown, in which
// case only its status advances. Returns whether the list changed and
// whether gen was live.
func (s *State) Append(gen Generation, m model.Message) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false, false
	}

	if i, exists := s.index[m.ID]; exists {
		return s.advanceLocked(i, m.Status), true
	}
	s.index[m.ID] = len(s.messages)
	s.messages = append(s.messages, m)
	if !m.Local {
		s.live[m.ID] = true
	}
	return true, true
}

// AddOptimistic appends a locally minted entry whose submission is in
// flight.
func (s *State) AddOptimistic(gen Generation, m model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}
	m.Local = true
	m.Mine = true
	s.pending[m.ID] = true
	s.index[m.ID] = len(s.messages)
	s.messages = append(s.messages, m)
	return true
}

// Settle marks an optimistic entry's submission as finished. The entry stays
// visible until the next history replaces it.
func (s *State) Settle(gen Generation, id model.MessageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}
	delete(s.pending, id)
	return true
}

// AdvanceStatus moves a shown message forward. No-op when absent.
func (s *State) AdvanceStatus(gen Generation, id model.MessageID, status model.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}
	return s.advanceLocked(i, status)
}

func (s *State) advanceLocked(i int, status model.Status) bool {
	prev := s.messages[i].Status
	next := prev.Advance(status)
	if next == prev {
		return false
	}
	s.messages[i].Status = next
	return true
}

// Snapshot copies the current view.
func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Generation: s.gen,
		Peer:       s.peer,
		Messages:   slices.Clone(s.messages),
		Presence:   s.presence.Snapshot(),
	}
}

// ApplyProfile feeds a profile poll result into presence.
func (s *State) ApplyProfile(gen Generation, hasOnline, online, hasLastSeen bool, lastSeen, now time.Time) bool {
	return s.withPresence(gen, func(p *presence.State) {
		p.ApplyProfile(hasOnline, online, hasLastSeen, lastSeen, now)
	})
}

// ApplyPresenceUpdate feeds a pushed presence update into presence.
func (s *State) ApplyPresenceUpdate(gen Generation, online bool, lastSeen, now time.Time) bool {
	return s.withPresence(gen, func(p *presence.State) { p.ApplyUpdate(online, lastSeen, now) })
}

// ApplyPresenceSnapshot marks the peer online from the online set.
func (s *State) ApplyPresenceSnapshot(gen Generation, now time.Time) bool {
	return s.withPresence(gen, func(p *presence.State) { p.ApplySnapshot(now) })
}

// MarkPeerActive records activity from the peer.
func (s *State) MarkPeerActive(gen Generation, now time.Time) bool {
	return s.withPresence(gen, func(p *presence.State) { p.MarkActive(now) })
}

// RecomputePresence runs the last-seen fallback. Returns whether the
// online flag changed.
func (s *State) RecomputePresence(gen Generation, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}
	return s.presence.Recompute(now)
}

func (s *State) withPresence(gen Generation, fn func(*presence.State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(gen) {
		return false
	}
	fn(s.presence)
	return true
}
