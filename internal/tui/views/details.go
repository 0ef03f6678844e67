package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/conversation"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Details shows what the client knows about the open peer.
type Details struct {
	*tview.TextView
	theme *ui.Theme
}

// NewDetails creates the peer details page.
func NewDetails(theme *ui.Theme) *Details {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &Details{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (d *Details) Name() string { return "Details" }

// Hints implements ui.Component.
func (d *Details) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders the contact card for v's peer.
func (d *Details) Update(c model.Contact, v conversation.View, stream string, now time.Time) {
	d.Clear()

	fg := ui.ColorName(d.theme.FgColor)
	val := ui.ColorName(d.theme.CounterColor)

	lastSeen := "-"
	if !v.Presence.LastSeen.IsZero() {
		lastSeen = formatTimestamp(v.Presence.LastSeen, now)
	}
	pending := 0
	for _, m := range v.Messages {
		if m.Local {
			pending++
		}
	}

	rows := [][2]string{
		{"Name", c.DisplayName()},
		{"Email", c.Email},
		{"User ID", c.ID.String()},
		{"Presence", FormatPresence(v.Presence, now)},
		{"Source", v.Presence.Source.String()},
		{"Last seen", lastSeen},
		{"Messages", fmt.Sprint(len(v.Messages))},
		{"Pending", fmt.Sprint(pending)},
		{"Stream", stream},
	}
	_, _ = fmt.Fprintln(d)
	for _, r := range rows {
		_, _ = fmt.Fprintf(d, " [%s::b]%-10s[-:-:-] [%s]%s[-]\n", fg, r[0]+":", val, tview.Escape(sanitizeForTerminal(r[1])))
	}
	d.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(c.DisplayName()))))
}
