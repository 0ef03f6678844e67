// Package sync drives the open conversation: it polls history and presence,
// listens on the push channel and submits outgoing messages, merging all of
// them into one conversation.State.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/conversation"
	"github.com/matheus3301/chatsync/internal/identity"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/presence"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// lastPeerKey is the settings key remembering the last opened conversation.
const lastPeerKey = "last_peer"

// Validation errors returned by the send operations.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrInvalidKind    = errors.New("attachment kind must be audio or video")
	ErrNoConversation = errors.New("no conversation is open")
)

// API is the subset of the REST client the engine polls.
type API interface {
	History(ctx context.Context, peer model.UserID) ([]model.Message, error)
	GetUser(ctx context.Context, id model.UserID) (*backend.Profile, error)
	Session() identity.Session
	ResolveURL(file string) string
}

// Options tunes the engine's schedules.
type Options struct {
	WSURL            string
	HistoryInterval  time.Duration
	PresenceInterval time.Duration
	FallbackInterval time.Duration
	OnlineWindow     time.Duration
	Dialer           *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.HistoryInterval <= 0 {
		o.HistoryInterval = 4 * time.Second
	}
	if o.PresenceInterval <= 0 {
		o.PresenceInterval = 10 * time.Second
	}
	if o.FallbackInterval <= 0 {
		o.FallbackInterval = presence.DefaultGap
	}
	if o.OnlineWindow <= 0 {
		o.OnlineWindow = presence.DefaultWindow
	}
	return o
}

// Update is the payload of conversation.updated.
type Update struct {
	Peer       model.UserID
	Generation conversation.Generation
}

// Notification is the payload of notify.message, published for messages
// that arrive outside the open conversation.
type Notification struct {
	From    model.UserID
	Preview string
	Unread  int
}

// Engine owns the open conversation and its background workers.
type Engine struct {
	api     API
	sender  *outbox.Sender
	ledger  *ledger.Ledger
	machine *status.Machine
	db      *store.DB
	bus     *bus.Bus
	logger  *zap.Logger
	opts    Options
	state   *conversation.State
	now     func() time.Time

	// openMu serializes Open and Close.
	openMu gosync.Mutex

	mu       gosync.Mutex
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	streamWG *gosync.WaitGroup
	workerWG *gosync.WaitGroup
}

// NewEngine creates a new sync engine.
func NewEngine(api API, sender *outbox.Sender, l *ledger.Ledger, m *status.Machine, db *store.DB, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Engine{
		api:     api,
		sender:  sender,
		ledger:  l,
		machine: m,
		db:      db,
		bus:     b,
		logger:  logger,
		opts:    opts,
		state:   conversation.New(opts.OnlineWindow, opts.FallbackInterval),
		now:     time.Now,
		parent:  context.Background(),
	}
}

// Start binds the engine's workers to ctx.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.parent = ctx
	e.mu.Unlock()
}

// Stop closes the open conversation and waits for its workers.
func (e *Engine) Stop() {
	e.Close()
}

// View returns a copy of the open conversation.
func (e *Engine) View() conversation.View {
	return e.state.Snapshot()
}

// Peer returns the open peer, zero when none.
func (e *Engine) Peer() model.UserID {
	return e.state.Peer()
}

// LastPeer returns the conversation opened most recently, zero when none.
func (e *Engine) LastPeer() model.UserID {
	if e.db == nil {
		return 0
	}
	v, err := e.db.Setting(lastPeerKey)
	if err != nil || v == "" {
		return 0
	}
	id, err := model.ParseUserID(v)
	if err != nil {
		return 0
	}
	return id
}

// Open switches to peer's conversation. Workers of the previous
// conversation are cancelled and its push channel is closed before the
// peer's unread count is cleared and a fresh channel is dialed.
func (e *Engine) Open(peer model.UserID) error {
	if !peer.Valid() {
		return fmt.Errorf("open conversation: invalid peer %s", peer)
	}
	e.openMu.Lock()
	defer e.openMu.Unlock()

	e.teardown(false)
	gen := e.state.Switch(peer)

	if err := e.ledger.Clear(peer); err != nil {
		e.logger.Warn("failed to clear unread", zap.Error(err), zap.Int64("peer", int64(peer)))
	}
	if e.db != nil {
		if err := e.db.SetSetting(lastPeerKey, peer.String()); err != nil {
			e.logger.Debug("failed to remember last peer", zap.Error(err))
		}
	}

	e.mu.Lock()
	ctx, cancel := context.WithCancel(e.parent)
	e.ctx, e.cancel = ctx, cancel
	streamWG, workerWG := &gosync.WaitGroup{}, &gosync.WaitGroup{}
	e.streamWG, e.workerWG = streamWG, workerWG
	e.mu.Unlock()

	e.publishUpdate(gen, peer)
	e.logger.Info("conversation opened", zap.Int64("peer", int64(peer)), zap.Uint64("generation", uint64(gen)))

	e.spawn(workerWG, func() { e.historyLoop(ctx, gen, peer) })
	e.spawn(workerWG, func() { e.presenceLoop(ctx, gen, peer) })
	e.spawn(workerWG, func() { e.fallbackLoop(ctx, gen, peer) })
	e.spawn(streamWG, func() { e.runStream(ctx, gen, peer) })
	return nil
}

// Close discards the open conversation and waits for every worker.
func (e *Engine) Close() {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	e.teardown(true)
	if e.state.Peer().Valid() {
		gen := e.state.Switch(0)
		e.publishUpdate(gen, 0)
	}
}

// teardown cancels the current workers. The push channel is always waited
// for so no handler of the previous conversation runs after it returns;
// pollers are only waited for when all is set and otherwise rely on the
// generation guard.
func (e *Engine) teardown(all bool) {
	e.mu.Lock()
	cancel, streamWG, workerWG := e.cancel, e.streamWG, e.workerWG
	e.cancel, e.ctx, e.streamWG, e.workerWG = nil, nil, nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if streamWG != nil {
		streamWG.Wait()
	}
	if all && workerWG != nil {
		workerWG.Wait()
	}
}

func (e *Engine) spawn(wg *gosync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

func (e *Engine) currentContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return e.parent
	}
	return e.ctx
}

func (e *Engine) historyLoop(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	e.fetchHistory(ctx, gen, peer)

	ticker := time.NewTicker(e.opts.HistoryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.fetchHistory(ctx, gen, peer)
		case <-ctx.Done():
			return
		}
	}
}

// fetchHistory replaces the conversation's messages. Failures leave the
// displayed state untouched.
func (e *Engine) fetchHistory(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	if !peer.Valid() || !e.state.Valid(gen) {
		return
	}
	msgs, err := e.api.History(ctx, peer)
	if err != nil {
		e.logger.Debug("history fetch failed", zap.Error(err), zap.Int64("peer", int64(peer)))
		return
	}
	if !e.state.ReplaceHistory(gen, msgs) {
		e.logger.Debug("discarding stale history", zap.Int64("peer", int64(peer)), zap.Uint64("generation", uint64(gen)))
		return
	}
	e.publishUpdate(gen, peer)
}

func (e *Engine) presenceLoop(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	e.pollPresence(ctx, gen, peer)

	ticker := time.NewTicker(e.opts.PresenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.pollPresence(ctx, gen, peer)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) pollPresence(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	p, err := e.api.GetUser(ctx, peer)
	if err != nil {
		e.logger.Debug("profile poll failed", zap.Error(err), zap.Int64("peer", int64(peer)))
		return
	}
	if e.state.ApplyProfile(gen, p.HasOnline, p.Online, p.HasLastSeen, p.LastSeen, e.now()) {
		e.publishUpdate(gen, peer)
	}
}

func (e *Engine) fallbackLoop(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	ticker := time.NewTicker(e.opts.FallbackInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if e.state.RecomputePresence(gen, e.now()) {
				e.publishUpdate(gen, peer)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) publishUpdate(gen conversation.Generation, peer model.UserID) {
	if e.bus != nil {
		e.bus.Publish(bus.NewEvent(bus.KindConversationUpdated, Update{Peer: peer, Generation: gen}))
	}
}

func (e *Engine) self() model.UserID {
	return e.api.Session().UserID
}

func idField(id model.MessageID) zap.Field {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return zap.Int64("msg_id", n)
	}
	return zap.String("msg_id", string(id))
}
