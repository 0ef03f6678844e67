package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays the application name.
type Logo struct {
	*tview.TextView
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := ColorName(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]┏━╸╻ ╻┏━┓╺┳╸[-:-:-]\n"+
			"[%s::b]┃  ┣━┫┣━┫ ┃ [-:-:-]\n"+
			"[%s::b]┗━╸╹ ╹╹ ╹ ╹ [-:-:-]\n"+
			"[%s]sync[-:-:-]",
		title, title, title, ColorName(theme.FgColor),
	)
	return &Logo{TextView: tv}
}

// InfoData is what the header shows about the running client.
type InfoData struct {
	Profile  string
	User     string
	Server   string
	Stream   string
	Contacts int
	Unread   int
}

// Info displays profile and connection state in the header.
type Info struct {
	*tview.TextView
	theme *Theme
}

// NewInfo creates a new header info panel.
func NewInfo(theme *Theme) *Info {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &Info{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders d.
func (in *Info) Update(d InfoData) {
	in.Clear()

	fg := ColorName(in.theme.FgColor)
	val := ColorName(in.theme.CounterColor)
	unread := val
	if d.Unread > 0 {
		unread = ColorName(in.theme.UnreadColor)
	}

	user := d.User
	if user == "" {
		user = "-"
	}
	stream := d.Stream
	if stream == "" {
		stream = "-"
	}

	_, _ = fmt.Fprintf(in,
		"[%s::b]Profile:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Server:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Stream:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Contacts:[-:-:-] [%s]%d[-]\n"+
			"[%s::b]Unread:[-:-:-]   [%s]%d[-]",
		fg, val, tview.Escape(d.Profile),
		fg, val, tview.Escape(user),
		fg, val, tview.Escape(d.Server),
		fg, val, stream,
		fg, val, d.Contacts,
		fg, unread, d.Unread,
	)
}
