package status

import (
	"testing"

	"github.com/matheus3301/chatsync/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	m := NewMachine(nil)
	steps := []State{Connecting, Open, Closed, Connecting, Closed, Connecting, Open}
	for _, to := range steps {
		from := m.Current()
		if err := m.Transition(to, 5); err != nil {
			t.Fatalf("Transition(%s -> %s) error = %v", from, to, err)
		}
		if m.Current() != to {
			t.Fatalf("state = %s, want %s", m.Current(), to)
		}
	}
	if m.Peer() != 5 {
		t.Errorf("peer = %d, want 5", m.Peer())
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		walk []State
		to   State
	}{
		{nil, Open},
		{nil, Closed},
		{[]State{Connecting}, Connecting},
		{[]State{Connecting, Open}, Connecting},
		{[]State{Connecting, Open, Closed}, Open},
	}
	for _, tt := range tests {
		m := NewMachine(nil)
		for _, s := range tt.walk {
			if err := m.Transition(s, 1); err != nil {
				t.Fatal(err)
			}
		}
		if err := m.Transition(tt.to, 1); err == nil {
			t.Errorf("Transition(%s -> %s) should fail", m.Current(), tt.to)
		}
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("stream.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting, 3); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStreamStateChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStreamStateChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting || change.Peer != 3 {
		t.Errorf("change = %+v, want DISCONNECTED -> CONNECTING for peer 3", change)
	}
}
