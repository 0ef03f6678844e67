package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is how many hints are stacked per column.
const menuRows = 4

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints column by column, menuRows per column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.render(hints))
}

func (m *Menu) render(hints []MenuHint) string {
	keyColor := ColorName(m.theme.MenuKeyColor)
	numColor := ColorName(m.theme.NumericKeyColor)

	width := 0
	for _, h := range hints {
		if n := len(h.Key) + len(h.Description) + 3; n > width {
			width = n
		}
	}

	lines := make([]strings.Builder, menuRows)
	for i, h := range hints {
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		cell := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", kc, h.Key, h.Description)
		pad := width - (len(h.Key) + len(h.Description) + 3)
		b := &lines[i%menuRows]
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", pad+2))
	}

	out := make([]string, 0, menuRows)
	for i := range lines {
		if s := strings.TrimRight(lines[i].String(), " "); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
