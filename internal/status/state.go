// Package status tracks the lifecycle of the realtime push channel.
package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
)

// State is a push channel lifecycle state.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Open         State = "OPEN"
	Closed       State = "CLOSED"
)

// validTransitions defines allowed state transitions. A closed channel is
// re-entered through Connecting when a new conversation is opened.
var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Open, Closed},
	Open:         {Closed},
	Closed:       {Connecting},
}

// Machine tracks and enforces push channel state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	peer    model.UserID
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Peer returns the conversation peer the channel was last opened for.
func (m *Machine) Peer() model.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peer
}

// Transition attempts to move to a new state on behalf of peer's
// conversation. Returns error if transition is invalid.
func (m *Machine) Transition(to State, peer model.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.peer = peer
	if m.bus != nil {
		m.bus.Publish(bus.NewEvent(bus.KindStreamStateChanged, StatusChange{
			From: from,
			To:   to,
			Peer: peer,
		}))
	}
	return nil
}

// StatusChange is the payload for stream state change events.
type StatusChange struct {
	From State
	To   State
	Peer model.UserID
}
