package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 1-9 jump keys, drawn in a different color
}

// Component is implemented by every page pushed onto Pages.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}

// Focusable is implemented by pages whose initial focus is a child
// primitive rather than the page itself.
type Focusable interface {
	FocusTarget() tview.Primitive
}

// FocusOf returns the primitive that should take focus when c is shown.
func FocusOf(c Component) tview.Primitive {
	if f, ok := c.(Focusable); ok {
		if p := f.FocusTarget(); p != nil {
			return p
		}
	}
	return c
}
