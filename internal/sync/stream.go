package sync

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/conversation"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/realtime"
	"github.com/matheus3301/chatsync/internal/status"
	"go.uber.org/zap"
)

// acker sends read receipts back on the push channel.
type acker interface {
	SendReadAck(id model.MessageID) error
}

// runStream holds the push channel open for the lifetime of one
// conversation. There is no reconnect; the next Open dials again.
func (e *Engine) runStream(ctx context.Context, gen conversation.Generation, peer model.UserID) {
	e.transition(status.Connecting, peer)

	token := e.api.Session().Token
	if token == "" || e.opts.WSURL == "" {
		e.logger.Debug("push channel disabled", zap.Bool("has_token", token != ""))
		e.transition(status.Closed, peer)
		return
	}

	s, err := realtime.Dial(ctx, e.opts.Dialer, e.opts.WSURL, token, e.logger)
	if err != nil {
		e.logger.Debug("push channel dial failed", zap.Error(err))
		e.transition(status.Closed, peer)
		return
	}
	e.transition(status.Open, peer)

	err = s.Run(ctx, func(evt realtime.Event) { e.handleEvent(gen, peer, s, evt) })
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Debug("push channel ended", zap.Error(err))
	}
	e.transition(status.Closed, peer)
}

func (e *Engine) transition(to status.State, peer model.UserID) {
	if e.machine == nil {
		return
	}
	if err := e.machine.Transition(to, peer); err != nil {
		e.logger.Debug("stream transition refused", zap.Error(err))
	}
}

// handleEvent applies one push event. Handlers tolerate duplicates and any
// arrival order.
func (e *Engine) handleEvent(gen conversation.Generation, peer model.UserID, ack acker, evt realtime.Event) {
	switch ev := evt.(type) {
	case realtime.MessageCreated:
		e.handleMessageCreated(gen, peer, ack, ev)
	case realtime.StatusChanged:
		if e.state.AdvanceStatus(gen, ev.ID, ev.NewStatus()) {
			e.publishUpdate(gen, peer)
		}
	case realtime.PresenceUpdate:
		if ev.UserID != peer {
			return
		}
		if e.state.ApplyPresenceUpdate(gen, ev.Online, parseOptionalTime(ev.LastSeen), e.now()) {
			e.publishUpdate(gen, peer)
		}
	case realtime.PresenceSnapshot:
		if !ev.Contains(peer) {
			return
		}
		if e.state.ApplyPresenceSnapshot(gen, e.now()) {
			e.publishUpdate(gen, peer)
		}
	}
}

func (e *Engine) handleMessageCreated(gen conversation.Generation, peer model.UserID, ack acker, ev realtime.MessageCreated) {
	self := e.self()
	if ev.From != peer && ev.To != peer {
		e.handleForeign(ev, self)
		return
	}

	m := model.Message{
		ID:        ev.ID,
		Sender:    ev.From,
		Receiver:  ev.To,
		Kind:      model.NormalizeKind(ev.MessageType),
		Content:   ev.Text(),
		URL:       e.api.ResolveURL(ev.FilePath()),
		CreatedAt: backend.ParseTime(ev.CreatedAt),
		Status:    model.NormalizeStatus(ev.Status),
		Mine:      self.Valid() && ev.From == self,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = e.now()
	}

	changed, ok := e.state.Append(gen, m)
	if !ok {
		return
	}
	if ev.From == peer {
		e.state.MarkPeerActive(gen, e.now())
		changed = true
		if ack != nil {
			if err := ack.SendReadAck(ev.ID); err != nil {
				e.logger.Debug("read ack failed", zap.Error(err), idField(ev.ID))
			}
		}
	}
	if changed {
		e.publishUpdate(gen, peer)
	}
}

// handleForeign counts a message for a conversation that is not open.
func (e *Engine) handleForeign(ev realtime.MessageCreated, self model.UserID) {
	if !ev.From.Valid() || ev.From == self {
		return
	}
	count, err := e.ledger.Increment(ev.From)
	if err != nil {
		e.logger.Warn("failed to count unread", zap.Error(err), zap.Int64("from", int64(ev.From)))
		return
	}
	preview := model.Message{Kind: model.NormalizeKind(ev.MessageType), Content: ev.Text()}.Preview()
	if e.bus != nil {
		e.bus.Publish(bus.NewEvent(bus.KindNotifyMessage, Notification{From: ev.From, Preview: preview, Unread: count}))
	}
}

func parseOptionalTime(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	return backend.ParseTime(*s)
}
