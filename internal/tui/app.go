// Package tui is the terminal front end: a contact list, one open
// conversation and a login page, drawn with tview.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/app"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/status"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"github.com/matheus3301/chatsync/internal/tui/keys"
	tuimodel "github.com/matheus3301/chatsync/internal/tui/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/matheus3301/chatsync/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page keys.
const (
	pageLogin    = "login"
	pageContacts = "contacts"
	pageThread   = "thread"
	pageDetails  = "details"
	pageHelp     = "help"
)

// Deps are the running client components the TUI drives.
type Deps struct {
	Profile   string
	Server    string
	Auth      *app.Auth
	Engine    *intsync.Engine
	Directory *contacts.Directory
	Ledger    *ledger.Ledger
	Bus       *bus.Bus
	Machine   *status.Machine
	Logger    *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	deps Deps

	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.Info
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	body     *tview.Flex
	registry *keys.Registry
	vm       *tuimodel.ViewModel

	login    *views.Login
	contacts *views.ContactList
	thread   *views.Thread
	details  *views.Details
	help     *views.Help

	// ops runs engine calls one at a time, in the order the user made them.
	ops          chan func()
	lastSelected bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		deps:     d,
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		crumbs:   ui.NewCrumbs(theme),
		menu:     ui.NewMenu(theme),
		info:     ui.NewInfo(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		registry: keys.NewRegistry(),
		vm:       tuimodel.NewViewModel(d.Directory),
		login:    views.NewLogin(theme),
		contacts: views.NewContactList(theme),
		thread:   views.NewThread(theme),
		details:  views.NewDetails(theme),
		help:     views.NewHelp(theme),
		ops:      make(chan func(), 16),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupPages()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupPages() {
	a.pages.Register(pageLogin, a.login)
	a.pages.Register(pageContacts, a.contacts)
	a.pages.Register(pageThread, a.thread)
	a.pages.Register(pageDetails, a.details)
	a.pages.Register(pageHelp, a.help)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.menu.Update(a.hints())
	})
}

func (a *App) hints() []ui.MenuHint {
	page := a.pages.Current()
	var hints []ui.MenuHint
	if c := a.pages.Top(); c != nil {
		hints = append(hints, c.Hints()...)
	}
	if page == pageLogin {
		return hints
	}
	return append(hints, a.registry.Hints(page)...)
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command",
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help",
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit",
		Handler: func() { a.Stop() },
	})

	a.registry.AddPage(pageContacts, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Hidden: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageContacts, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Refresh",
		Handler: func() { a.refreshContacts() },
	})
	for n := 1; n <= 9; n++ {
		n := n
		a.registry.AddPage(pageContacts, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n), Hidden: true,
			Handler: func() {
				if peer := a.contacts.PeerByIndex(n); peer.Valid() {
					a.openConversation(peer)
				}
			},
		})
	}

	a.registry.AddPage(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Hidden: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Hidden: true,
		Handler: func() { a.showDetails() },
	})
}

func (a *App) setupCallbacks() {
	a.contacts.SetSelectedFunc(func(row, _ int) {
		if peer := a.contacts.PeerByIndex(row); peer.Valid() {
			a.openConversation(peer)
		}
	})

	a.thread.SetOnSend(func(text string) {
		if _, err := a.deps.Engine.SendText(text); err != nil {
			a.flash.Err(err)
		}
		a.redrawThread()
	})

	a.login.SetOnLogin(func(email, password string) {
		a.login.ShowMessage("Signing in...")
		go func() {
			_, err := a.deps.Auth.Login(a.ctx, email, password)
			a.afterAuth(err)
		}()
	})
	a.login.SetOnRegister(func(r backend.Registration) {
		a.login.ShowMessage("Creating account...")
		go func() {
			_, err := a.deps.Auth.Register(a.ctx, r)
			a.afterAuth(err)
		}()
	})
	a.login.SetOnQuit(a.Stop)

	a.prompt.SetOnChange(func(text string) {
		a.applyFilter(text)
	})
	a.prompt.SetCompleter(func(text string) []string {
		return Complete(text, a.vm.Names)
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptFilter:
			a.applyFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.applyFilter("")
		}
		a.closePrompt()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 14, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.body.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.captureInput)
}

func (a *App) captureInput(event *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()
	focused := a.app.GetFocus()

	if event.Key() == tcell.KeyEscape {
		switch {
		case focused == a.prompt.InputField:
			return event
		case focused == a.thread.Composer():
			a.app.SetFocus(a.thread.Messages())
			return nil
		case page == pageContacts && a.vm.Query() != "":
			a.applyFilter("")
			return nil
		case page == pageLogin || page == pageContacts:
			return event
		default:
			a.back()
			return nil
		}
	}

	// Text inputs and the login form get every other key.
	if _, ok := focused.(*tview.InputField); ok {
		return event
	}
	if page == pageLogin {
		return event
	}

	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

func (a *App) push(key string) {
	a.pages.Push(key)
	a.app.SetFocus(ui.FocusOf(a.pages.Top()))
}

func (a *App) back() {
	popped := a.pages.Pop()
	if popped == "" {
		return
	}
	if popped == pageThread {
		a.do(a.deps.Engine.Close)
	}
	a.app.SetFocus(ui.FocusOf(a.pages.Top()))
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	initial := ""
	if mode == ui.PromptFilter {
		initial = a.vm.Query()
	}
	a.prompt.Activate(mode, initial)
	a.body.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(ui.FocusOf(a.pages.Top()))
}

// Run starts the TUI application. It blocks until the user quits.
func (a *App) Run() error {
	if a.deps.Auth.Session().Authenticated() {
		a.showContacts()
	} else {
		a.showLogin()
	}
	a.updateInfo()

	go a.runOps()
	go a.watchBus()
	go a.watchUnread()
	go a.watchFlash()
	go a.tick()

	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) showLogin() {
	a.login.Reset()
	a.pages.Reset(pageLogin)
	a.app.SetFocus(ui.FocusOf(a.login))
}

func (a *App) showContacts() {
	a.pages.Reset(pageContacts)
	a.app.SetFocus(a.contacts)
	a.refreshContacts()
}

func (a *App) afterAuth(err error) {
	a.app.QueueUpdateDraw(func() {
		if err != nil {
			a.deps.Logger.Info("authentication failed", zap.Error(err))
			a.login.ShowError(err)
			return
		}
		a.updateInfo()
		a.showContacts()
	})
}

// refreshContacts reloads the cached list at once, then again after the
// server fetch.
func (a *App) refreshContacts() {
	go func() {
		if err := a.vm.Reload(); err != nil {
			a.deps.Logger.Warn("load contacts", zap.Error(err))
		}
		a.app.QueueUpdateDraw(a.renderContacts)

		if err := a.vm.Refresh(a.ctx); err != nil {
			a.deps.Logger.Warn("refresh contacts", zap.Error(err))
			a.flash.Warn("Could not refresh contacts: " + err.Error())
		}
		a.app.QueueUpdateDraw(a.renderContacts)
	}()
}

func (a *App) renderContacts() {
	entries, query, total := a.vm.Entries()
	a.contacts.Update(entries, query, total)
	if !a.lastSelected && len(entries) > 0 {
		a.lastSelected = true
		a.selectPeer(a.deps.Engine.LastPeer())
	}
	a.updateInfo()
}

func (a *App) selectPeer(peer model.UserID) {
	for i, e := range a.contacts.Entries() {
		if e.ID == peer {
			a.contacts.Select(i+1, 0)
			return
		}
	}
}

func (a *App) applyFilter(query string) {
	if err := a.vm.SetQuery(strings.TrimSpace(query)); err != nil {
		a.flash.Err(err)
		return
	}
	a.renderContacts()
}

func (a *App) openConversation(peer model.UserID) {
	c := a.vm.Contact(peer)
	a.thread.SetPeer(c.DisplayName())
	if a.pages.Current() != pageThread {
		a.pages.Reset(pageContacts)
		a.push(pageThread)
	}
	a.pages.Refresh()

	a.do(func() {
		if err := a.deps.Engine.Open(peer); err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(a.redrawThread)
	})
}

// do queues fn behind earlier engine calls.
func (a *App) do(fn func()) {
	select {
	case a.ops <- fn:
	case <-a.ctx.Done():
	}
}

func (a *App) runOps() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case fn := <-a.ops:
			fn()
		}
	}
}

func (a *App) redrawThread() {
	v := a.deps.Engine.View()
	if !v.Peer.Valid() {
		return
	}
	now := time.Now()
	a.thread.Update(v, now)
	if a.pages.Current() == pageDetails {
		a.details.Update(a.vm.Contact(v.Peer), v, string(a.deps.Machine.Current()), now)
	}
}

func (a *App) showDetails() {
	v := a.deps.Engine.View()
	if !v.Peer.Valid() {
		return
	}
	a.details.Update(a.vm.Contact(v.Peer), v, string(a.deps.Machine.Current()), time.Now())
	a.push(pageDetails)
}

func (a *App) runCommand(cmd Command) {
	if err := cmd.Validate(); err != nil {
		a.flash.Err(err)
		return
	}
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "refresh":
		a.refreshContacts()
	case "logout":
		a.do(func() {
			if err := a.deps.Auth.Logout(); err != nil {
				a.flash.Err(err)
			}
			a.app.QueueUpdateDraw(func() {
				a.updateInfo()
				a.showLogin()
			})
		})
	case "open":
		c, ok := a.vm.Find(cmd.Args)
		if !ok {
			a.flash.Warn(fmt.Sprintf("No contact matches %q", cmd.Args))
			return
		}
		a.openConversation(c.ID)
	case "audio", "video":
		a.sendFile(model.Kind(cmd.Name), cmd.Args)
	}
}

func (a *App) sendFile(kind model.Kind, path string) {
	if !a.deps.Engine.Peer().Valid() {
		a.flash.Err(intsync.ErrNoConversation)
		return
	}
	path = expandHome(path)
	a.do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			a.flash.Err(err)
			return
		}
		if _, err := a.deps.Engine.SendMedia(kind, filepath.Base(path), data); err != nil {
			a.flash.Err(err)
			return
		}
		a.app.QueueUpdateDraw(a.redrawThread)
	})
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (a *App) updateInfo() {
	user := ""
	if s := a.deps.Auth.Session(); s.Authenticated() {
		user = "#" + s.UserID.String()
		if c := a.vm.Contact(s.UserID); c.FirstName != "" || c.Email != "" {
			user = c.DisplayName()
		}
	}
	_, _, total := a.vm.Entries()
	a.info.Update(ui.InfoData{
		Profile:  a.deps.Profile,
		User:     user,
		Server:   a.deps.Server,
		Stream:   string(a.deps.Machine.Current()),
		Contacts: total,
		Unread:   a.vm.UnreadTotal(),
	})
}

func (a *App) watchBus() {
	sub, unsub := a.deps.Bus.Subscribe("", 64)
	defer unsub()
	for {
		select {
		case <-a.ctx.Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			a.handleEvent(evt)
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindConversationUpdated:
		u, ok := evt.Payload.(intsync.Update)
		if !ok || u.Peer != a.deps.Engine.Peer() {
			return
		}
		a.app.QueueUpdateDraw(a.redrawThread)
	case bus.KindNotifyMessage:
		if n, ok := evt.Payload.(intsync.Notification); ok {
			a.flash.Info(describeNotification(n, a.vm.Contact(n.From)))
		}
	case bus.KindMessageSendFailed:
		if f, ok := evt.Payload.(outbox.Failure); ok {
			a.flash.Warn("Message not sent: " + f.Error)
		}
	case bus.KindStreamStateChanged, bus.KindContactsRefreshed:
		a.app.QueueUpdateDraw(a.updateInfo)
	}
}

func describeNotification(n intsync.Notification, from model.Contact) string {
	preview := n.Preview
	if r := []rune(preview); len(r) > 60 {
		preview = string(r[:59]) + "…"
	}
	msg := from.DisplayName() + ": " + preview
	if n.Unread > 1 {
		msg += fmt.Sprintf(" (%d unread)", n.Unread)
	}
	return msg
}

func (a *App) watchUnread() {
	changes, unsub := a.deps.Ledger.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-a.ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			a.vm.ApplyUnread(c)
			a.app.QueueUpdateDraw(func() {
				a.contacts.SetUnread(c.Peer, c.Count)
				a.updateInfo()
			})
		}
	}
}

func (a *App) watchFlash() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
			})
		}
	}
}

// tick expires flash messages and keeps "last seen" phrases current.
func (a *App) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				if a.pages.Contains(pageThread) {
					a.thread.RefreshPresence(now)
				}
			})
		}
	}
}
