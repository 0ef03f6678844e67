package ui

import "github.com/rivo/tview"

// Pages is a stack of named components over tview.Pages. The bottom entry
// is the root page and is never popped.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Register adds a component under its Name. Registered pages start hidden.
func (p *Pages) Register(key string, c Component) {
	p.components[key] = c
	p.AddPage(key, c, true, false)
}

// Component returns the component registered under key.
func (p *Pages) Component(key string) Component {
	return p.components[key]
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows key on top of the stack. Pushing the page already on top is a
// no-op.
func (p *Pages) Push(key string) {
	if p.Current() == key {
		return
	}
	if len(p.stack) > 0 {
		p.HidePage(p.Current())
	}
	p.stack = append(p.stack, key)
	p.ShowPage(key)
	p.SendToFront(key)
	p.notify()
}

// Pop removes the top page and returns its key. The root page stays; Pop
// returns "" when only the root is left.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	current := p.Current()
	p.ShowPage(current)
	p.SendToFront(current)
	p.notify()
	return top
}

// Current returns the key of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Top returns the component on top of the stack, or nil.
func (p *Pages) Top() Component {
	return p.components[p.Current()]
}

// Contains reports whether key is anywhere on the stack.
func (p *Pages) Contains(key string) bool {
	for _, k := range p.stack {
		if k == key {
			return true
		}
	}
	return false
}

// Stack returns the display names of the stacked components, root first.
func (p *Pages) Stack() []string {
	names := make([]string, 0, len(p.stack))
	for _, k := range p.stack {
		if c := p.components[k]; c != nil {
			names = append(names, c.Name())
		} else {
			names = append(names, k)
		}
	}
	return names
}

// Reset clears the stack and makes key the root page.
func (p *Pages) Reset(key string) {
	for _, k := range p.stack {
		p.HidePage(k)
	}
	p.stack = []string{key}
	p.ShowPage(key)
	p.SendToFront(key)
	p.notify()
}

// Refresh re-fires the change callback, e.g. after a component renamed
// itself.
func (p *Pages) Refresh() {
	p.notify()
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
