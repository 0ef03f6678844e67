package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactList is the root page: every known user with an unread badge.
type ContactList struct {
	*tview.Table
	theme   *ui.Theme
	entries []contacts.Entry
	filter  string
	total   int
}

// NewContactList creates the contact table.
func NewContactList(theme *ui.Theme) *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ContactList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ContactList) Name() string { return "Contacts" }

// Hints implements ui.Component.
func (cl *ContactList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the rows. entries are already filtered by query; total
// is the unfiltered count for the title. The selection follows the
// previously selected peer when it is still listed.
func (cl *ContactList) Update(entries []contacts.Entry, query string, total int) {
	selected := cl.SelectedPeer()
	cl.entries = entries
	cl.filter = query
	cl.total = total
	cl.render()

	row := 1
	for i, e := range entries {
		if e.ID == selected {
			row = i + 1
			break
		}
	}
	if len(entries) > 0 {
		cl.Select(row, 0)
	}
}

// SetUnread updates one peer's badge in place.
func (cl *ContactList) SetUnread(peer model.UserID, count int) {
	for i := range cl.entries {
		if cl.entries[i].ID == peer {
			cl.entries[i].Unread = count
			cl.SetCell(i+1, 3, cl.unreadCell(count))
			return
		}
	}
}

// Entries returns the rows currently shown.
func (cl *ContactList) Entries() []contacts.Entry {
	return cl.entries
}

func (cl *ContactList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" NAME", 2},
		{" EMAIL", 2},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	for i, e := range cl.entries {
		row := i + 1
		idx := ""
		if row <= 9 {
			idx = strconv.Itoa(row)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+idx).SetTextColor(cl.theme.NumericKeyColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.DisplayName()))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.Email))).SetExpansion(2).SetTextColor(cl.theme.DimColor))
		cl.SetCell(row, 3, cl.unreadCell(e.Unread))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d/%d) filter: %s ", len(cl.entries), cl.total, tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Contacts (%d) ", len(cl.entries)))
	}
}

func (cl *ContactList) unreadCell(n int) *tview.TableCell {
	cell := tview.NewTableCell("").SetAlign(tview.AlignRight)
	if n > 0 {
		cell.SetText(fmt.Sprintf("(%d) ", n)).
			SetTextColor(cl.theme.UnreadColor).
			SetAttributes(tcell.AttrBold)
	}
	return cell
}

// SelectedPeer returns the id of the highlighted contact, zero when none.
func (cl *ContactList) SelectedPeer() model.UserID {
	row, _ := cl.GetSelection()
	return cl.PeerByIndex(row)
}

// PeerByIndex returns the id of the nth listed contact (1-based).
func (cl *ContactList) PeerByIndex(n int) model.UserID {
	if n < 1 || n > len(cl.entries) {
		return 0
	}
	return cl.entries[n-1].ID
}
