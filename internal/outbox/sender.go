// Package outbox submits outgoing messages asynchronously and records each
// submission in the local store.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Transport delivers messages to the server.
type Transport interface {
	SendText(ctx context.Context, peer model.UserID, text string) (model.Message, error)
	SendMedia(ctx context.Context, peer model.UserID, kind model.Kind, name string, data []byte) (model.Message, error)
}

// Submission is one outgoing message. ClientMsgID is the optimistic entry's
// local id.
type Submission struct {
	ClientMsgID model.MessageID
	Peer        model.UserID
	Kind        model.Kind
	Text        string
	FileName    string
	Data        []byte
}

// Result is reported once a submission has finished.
type Result struct {
	Submission Submission
	Server     model.Message
	Err        error
}

// Ack is the payload of message.send_ack.
type Ack struct {
	ClientMsgID model.MessageID
	ServerMsgID model.MessageID
	Peer        model.UserID
}

// Failure is the payload of message.send_failed.
type Failure struct {
	ClientMsgID model.MessageID
	Peer        model.UserID
	Error       string
}

// errInterrupted marks entries left unfinished by a previous run.
var errInterrupted = errors.New("interrupted before completion")

// Sender runs submissions in the background.
type Sender struct {
	db        *store.DB
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, transport Transport, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sender{
		db:        db,
		transport: transport,
		bus:       b,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start binds submissions to ctx and fails entries a previous run left
// queued or sending.
func (s *Sender) Start(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, status := range []string{store.OutboxQueued, store.OutboxSending} {
		stale, err := s.db.OutboxByStatus(status)
		if err != nil {
			s.logger.Error("failed to read outbox", zap.Error(err))
			return
		}
		for _, e := range stale {
			if err := s.db.MarkOutboxFailed(e.ClientMsgID, errInterrupted.Error()); err != nil {
				s.logger.Error("failed to mark interrupted", zap.Error(err), zap.String("client_msg_id", e.ClientMsgID))
			}
		}
		if len(stale) > 0 {
			s.logger.Warn("outbox entries interrupted", zap.String("status", status), zap.Int("count", len(stale)))
		}
	}
}

// Stop cancels in-flight submissions and waits for them to finish.
func (s *Sender) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

// Submit records sub and sends it in the background. done, when non-nil,
// is called exactly once with the outcome.
func (s *Sender) Submit(sub Submission, done func(Result)) error {
	if err := s.db.QueueOutbox(string(sub.ClientMsgID), int64(sub.Peer), string(sub.Kind), sub.Text, sub.FileName); err != nil {
		return fmt.Errorf("queue outbox: %w", err)
	}

	s.mu.Lock()
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		res := s.send(ctx, sub)
		if done != nil {
			done(res)
		}
	}()
	return nil
}

func (s *Sender) send(ctx context.Context, sub Submission) Result {
	id := string(sub.ClientMsgID)
	if err := s.db.MarkOutboxSending(id); err != nil {
		s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", id))
	}

	var (
		server model.Message
		err    error
	)
	if sub.Kind.IsMedia() {
		server, err = s.transport.SendMedia(ctx, sub.Peer, sub.Kind, sub.FileName, sub.Data)
	} else {
		server, err = s.transport.SendText(ctx, sub.Peer, sub.Text)
	}

	if err != nil {
		s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", id))
		if merr := s.db.MarkOutboxFailed(id, err.Error()); merr != nil {
			s.logger.Error("failed to mark failed", zap.Error(merr), zap.String("client_msg_id", id))
		}
		s.publish(bus.KindMessageSendFailed, Failure{ClientMsgID: sub.ClientMsgID, Peer: sub.Peer, Error: err.Error()})
		return Result{Submission: sub, Err: err}
	}

	if err := s.db.MarkOutboxSent(id, string(server.ID)); err != nil {
		s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", id))
	}
	s.logger.Info("message sent", zap.String("client_msg_id", id), zap.String("server_msg_id", string(server.ID)))
	s.publish(bus.KindMessageSendAck, Ack{ClientMsgID: sub.ClientMsgID, ServerMsgID: server.ID, Peer: sub.Peer})
	return Result{Submission: sub, Server: server}
}

func (s *Sender) publish(kind string, payload any) {
	if s.bus != nil {
		s.bus.Publish(bus.NewEvent(kind, payload))
	}
}
