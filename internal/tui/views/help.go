package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Help lists key bindings and prompt commands.
type Help struct {
	*tview.TextView
}

// NewHelp creates the help page.
func NewHelp(theme *ui.Theme) *Help {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	h := &Help{TextView: tv}
	_, _ = fmt.Fprint(h, renderHelp(ui.ColorName(theme.MenuKeyColor)))
	return h
}

// Name implements ui.Component.
func (h *Help) Name() string { return "Help" }

// Hints implements ui.Component.
func (h *Help) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command prompt"},
		{"?", "This help"},
		{"Esc", "Back / leave composer"},
		{"q", "Quit"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Contacts", [][2]string{
		{"Enter", "Open conversation"},
		{"/", "Filter by name or email"},
		{"1-9", "Open the Nth contact"},
		{"r", "Refresh from server"},
	}},
	{"Conversation", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"d", "Peer details"},
	}},
	{"Commands", [][2]string{
		{":open <name>", "Open the first matching contact"},
		{":audio <path>", "Send an audio file"},
		{":video <path>", "Send a video file"},
		{":refresh", "Reload contacts"},
		{":logout", "Forget the stored credential"},
		{":quit", "Quit"},
		{"Down/Tab", "Pick a suggested completion"},
	}},
}

func renderHelp(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		_, _ = fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			_, _ = fmt.Fprintf(&b, "  [%s]%-16s[-:-:-] %s\n", keyColor, tview.Escape(r[0]), r[1])
		}
	}
	return b.String()
}
