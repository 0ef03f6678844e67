package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPageBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Handler: func() { hit = "global" }})
	r.AddPage("thread", &Action{Key: tcell.KeyRune, Rune: 'q', Description: "Back", Handler: func() { hit = "page" }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	if !r.HandleEvent("thread", ev) || hit != "page" {
		t.Errorf("thread: hit = %q", hit)
	}
	if !r.HandleEvent("contacts", ev) || hit != "global" {
		t.Errorf("contacts: hit = %q", hit)
	}
	if r.HandleEvent("contacts", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key handled")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	noop := func() {}
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Handler: noop})
	r.AddPage("contacts", &Action{Key: tcell.KeyEnter, Label: "Enter", Description: "Open", Handler: noop})
	r.AddPage("contacts", &Action{Key: tcell.KeyRune, Rune: 'r', Description: "Refresh", Handler: noop})
	r.AddPage("contacts", &Action{Key: tcell.KeyRune, Rune: 'x', Description: "Secret", Handler: noop, Hidden: true})

	hints := r.Hints("contacts")
	want := []string{"Enter:Open", "r:Refresh", "?:Help"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %+v", hints)
	}
	for i, h := range hints {
		if got := h.Key + ":" + h.Description; got != want[i] {
			t.Errorf("hint %d = %s, want %s", i, got, want[i])
		}
	}
}
