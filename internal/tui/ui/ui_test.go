package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
)

type stubPage struct {
	*tview.Box
	name string
}

func (s stubPage) Name() string      { return s.name }
func (s stubPage) Hints() []MenuHint { return nil }

func newStubPages() *Pages {
	p := NewPages()
	p.Register("contacts", stubPage{tview.NewBox(), "Contacts"})
	p.Register("thread", stubPage{tview.NewBox(), "Ana"})
	p.Register("details", stubPage{tview.NewBox(), "Details"})
	return p
}

func TestPagesStack(t *testing.T) {
	p := newStubPages()
	var seen [][]string
	p.SetOnChange(func(s []string) { seen = append(seen, s) })

	p.Reset("contacts")
	p.Push("thread")
	p.Push("thread")
	p.Push("details")

	if got := strings.Join(p.Stack(), ">"); got != "Contacts>Ana>Details" {
		t.Fatalf("stack = %s", got)
	}
	if len(seen) != 3 {
		t.Errorf("change callbacks = %d, want 3", len(seen))
	}
	if !p.Contains("thread") {
		t.Error("thread not on stack")
	}

	if top := p.Pop(); top != "details" {
		t.Errorf("pop = %q", top)
	}
	if top := p.Pop(); top != "thread" {
		t.Errorf("pop = %q", top)
	}
	if top := p.Pop(); top != "" {
		t.Errorf("root popped: %q", top)
	}
	if p.Current() != "contacts" {
		t.Errorf("current = %q", p.Current())
	}
}

func TestFocusOf(t *testing.T) {
	box := tview.NewBox()
	page := stubPage{box, "x"}
	if FocusOf(page) != page {
		t.Error("plain component should focus itself")
	}
}

func TestFlashExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model has a message")
	}

	f.Err(errors.New("boom"))
	msg := f.Current()
	if msg == nil || msg.Text != "boom" || msg.Level != FlashErr {
		t.Fatalf("current = %+v", msg)
	}
	select {
	case got := <-f.Watch():
		if got.Text != "boom" {
			t.Errorf("watched = %q", got.Text)
		}
	default:
		t.Error("no watch notification")
	}

	now = now.Add(flashErrTTL + time.Second)
	if f.Current() != nil {
		t.Error("message did not expire")
	}

	f.Err(nil)
	if f.Current() != nil {
		t.Error("nil error produced a message")
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	hints := []MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
	lines := strings.Split(m.render(hints), "\n")
	if len(lines) != menuRows {
		t.Fatalf("lines = %d, want %d", len(lines), menuRows)
	}
	if !strings.Contains(lines[0], "<Enter>") || !strings.Contains(lines[0], "<q>") {
		t.Errorf("first row = %q", lines[0])
	}
}

func TestCrumbsMarkActive(t *testing.T) {
	theme := DefaultTheme()
	c := NewCrumbs(theme)
	out := c.render([]string{"Contacts", "Ana [x]"})
	if !strings.Contains(out, ColorName(theme.CrumbActiveBg)+":b] Ana [x[] ") {
		t.Errorf("render = %q", out)
	}
}
