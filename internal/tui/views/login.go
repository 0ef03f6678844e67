package views

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Login is the sign-in / sign-up page shown while no credential is stored.
type Login struct {
	*tview.Flex
	theme      *ui.Theme
	form       *tview.Form
	status     *tview.TextView
	onLogin    func(email, password string)
	onRegister func(r backend.Registration)
	onQuit     func()
}

// NewLogin creates the login page.
func NewLogin(theme *ui.Theme) *Login {
	form := tview.NewForm().
		AddInputField("Email", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil).
		AddInputField("First name", "", 40, nil, nil).
		AddInputField("Last name", "", 40, nil, nil)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.TableCursorBg)
	form.SetButtonTextColor(theme.TableCursorFg)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)

	status := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	status.SetBackgroundColor(theme.BgColor)
	status.SetBorderPadding(0, 0, 1, 1)

	l := &Login{
		theme:  theme,
		form:   form,
		status: status,
	}

	form.AddButton("Login", func() {
		if l.onLogin != nil {
			l.onLogin(l.field("Email"), l.field("Password"))
		}
	})
	form.AddButton("Register", func() {
		if l.onRegister != nil {
			l.onRegister(backend.Registration{
				Email:     l.field("Email"),
				Password:  l.field("Password"),
				FirstName: l.field("First name"),
				LastName:  l.field("Last name"),
			})
		}
	})
	form.AddButton("Quit", func() {
		if l.onQuit != nil {
			l.onQuit()
		}
	})

	l.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(form, 13, 0, true).
		AddItem(status, 0, 1, false)
	l.ShowMessage("First and last name are only used when registering.")
	return l
}

// Name implements ui.Component.
func (l *Login) Name() string { return "Sign in" }

// Hints implements ui.Component.
func (l *Login) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
	}
}

// FocusTarget implements ui.Focusable.
func (l *Login) FocusTarget() tview.Primitive { return l.form }

// SetOnLogin sets the Login button callback.
func (l *Login) SetOnLogin(fn func(email, password string)) { l.onLogin = fn }

// SetOnRegister sets the Register button callback.
func (l *Login) SetOnRegister(fn func(r backend.Registration)) { l.onRegister = fn }

// SetOnQuit sets the Quit button callback.
func (l *Login) SetOnQuit(fn func()) { l.onQuit = fn }

// Reset clears the password and the status line.
func (l *Login) Reset() {
	if f, ok := l.form.GetFormItemByLabel("Password").(*tview.InputField); ok {
		f.SetText("")
	}
	l.ShowMessage("")
	l.form.SetFocus(0)
}

// ShowMessage displays a neutral status line.
func (l *Login) ShowMessage(msg string) {
	l.status.Clear()
	_, _ = fmt.Fprintf(l.status, "[%s]%s[-]", ui.ColorName(l.theme.DimColor), tview.Escape(msg))
}

// ShowError displays a login or register failure.
func (l *Login) ShowError(err error) {
	l.status.Clear()
	_, _ = fmt.Fprintf(l.status, "[%s]%s[-]", ui.ColorName(l.theme.FlashErrColor), tview.Escape(FormatAuthError(err)))
}

func (l *Login) field(label string) string {
	if f, ok := l.form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return strings.TrimSpace(f.GetText())
	}
	return ""
}

// FormatAuthError turns a login or register failure into lines for the
// user: the server's detail, else one line per rejected field.
func FormatAuthError(err error) string {
	var se *backend.StatusError
	if !errors.As(err, &se) {
		return err.Error()
	}
	if se.Detail != "" {
		return se.Detail
	}
	if len(se.Fields) == 0 {
		return se.Error()
	}
	keys := make([]string, 0, len(se.Fields))
	for k := range se.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+strings.Join(se.Fields[k], " "))
	}
	return strings.Join(lines, "\n")
}
