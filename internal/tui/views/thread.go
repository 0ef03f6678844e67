package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/conversation"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Thread shows the open conversation: a presence header, the messages and
// a composer.
type Thread struct {
	*tview.Flex
	theme    *ui.Theme
	header   *tview.TextView
	messages *tview.TextView
	composer *tview.InputField
	peerName string
	last     conversation.View
	onSend   func(text string)
}

// NewThread creates the conversation page.
func NewThread(theme *ui.Theme) *Thread {
	header := tview.NewTextView().
		SetDynamicColors(true)
	header.SetBackgroundColor(theme.BgColor)
	header.SetBorderPadding(0, 0, 1, 1)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	t := &Thread{
		Flex:     flex,
		theme:    theme,
		header:   header,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || t.onSend == nil {
			return
		}
		text := composer.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		t.onSend(text)
		composer.SetText("")
	})

	return t
}

// Name implements ui.Component.
func (t *Thread) Name() string {
	if t.peerName != "" {
		return t.peerName
	}
	return "Conversation"
}

// Hints implements ui.Component.
func (t *Thread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focusable.
func (t *Thread) FocusTarget() tview.Primitive { return t.messages }

// SetPeer resets the page for a newly opened conversation.
func (t *Thread) SetPeer(name string) {
	t.peerName = name
	t.last = conversation.View{}
	t.messages.Clear()
	t.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(name))))
	t.header.Clear()
	t.composer.SetText("")
}

// SetOnSend sets the callback for a submitted composer line.
func (t *Thread) SetOnSend(fn func(text string)) {
	t.onSend = fn
}

// Update renders v. Views from an older generation than the one shown are
// ignored.
func (t *Thread) Update(v conversation.View, now time.Time) {
	if v.Generation < t.last.Generation {
		return
	}
	follow := t.atBottom()
	t.last = v

	t.renderHeader(v, now)

	t.messages.Clear()
	_, _ = fmt.Fprint(t.messages, t.renderMessages(v.Messages, now))
	if follow {
		t.messages.ScrollToEnd()
	}
}

// RefreshPresence redraws only the header, e.g. on a clock tick.
func (t *Thread) RefreshPresence(now time.Time) {
	t.renderHeader(t.last, now)
}

func (t *Thread) renderHeader(v conversation.View, now time.Time) {
	t.header.Clear()
	if !v.Peer.Valid() {
		return
	}
	color := t.theme.OfflineColor
	if v.Presence.Online {
		color = t.theme.OnlineColor
	}
	_, _ = fmt.Fprintf(t.header, "[%s::b]%s[-:-:-]  [%s]● %s[-]",
		ui.ColorName(t.theme.TitleColor), tview.Escape(sanitizeForTerminal(t.peerName)),
		ui.ColorName(color), FormatPresence(v.Presence, now))
}

func (t *Thread) renderMessages(msgs []model.Message, now time.Time) string {
	own := ui.ColorName(t.theme.OwnMessageColor)
	peer := ui.ColorName(t.theme.PeerMessageColor)
	dim := ui.ColorName(t.theme.DimColor)
	pending := ui.ColorName(t.theme.PendingColor)

	var b strings.Builder
	for _, m := range msgs {
		sender, color := t.peerName, peer
		if m.Mine {
			sender, color = "You", own
		}
		_, _ = fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]", color, tview.Escape(sanitizeForTerminal(sender)), dim, formatTimestamp(m.CreatedAt, now))
		if m.Mine {
			mark := statusMark(m)
			if m.Local {
				_, _ = fmt.Fprintf(&b, " [%s]%s[-]", pending, mark)
			} else {
				_, _ = fmt.Fprintf(&b, " [%s]%s[-]", dim, mark)
			}
		}
		b.WriteString("\n")
		b.WriteString(tview.Escape(sanitizeForTerminal(body(m))))
		b.WriteString("\n\n")
	}
	return b.String()
}

func body(m model.Message) string {
	if !m.Kind.IsMedia() {
		return m.Content
	}
	if m.URL == "" {
		return "[" + string(m.Kind) + "]"
	}
	return "[" + string(m.Kind) + "] " + m.URL
}

func (t *Thread) atBottom() bool {
	row, _ := t.messages.GetScrollOffset()
	_, _, _, height := t.messages.GetInnerRect()
	lines := strings.Count(t.messages.GetText(false), "\n")
	return row+height >= lines || lines == 0
}

// Messages returns the message pane for focus management.
func (t *Thread) Messages() *tview.TextView {
	return t.messages
}

// Composer returns the composer input field for focus management.
func (t *Thread) Composer() *tview.InputField {
	return t.composer
}
