package sync

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/outbox"
	"go.uber.org/zap"
)

// SendText appends an optimistic entry and submits text in the background.
// Whitespace-only text is rejected without touching state or the network.
func (e *Engine) SendText(text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}
	return e.submit(outbox.Submission{Kind: model.KindText, Text: text})
}

// SendMedia appends an optimistic entry for an audio or video attachment
// and uploads it in the background.
func (e *Engine) SendMedia(kind model.Kind, name string, data []byte) (model.Message, error) {
	if !kind.IsMedia() {
		return model.Message{}, ErrInvalidKind
	}
	if len(data) == 0 {
		return model.Message{}, ErrEmptyMessage
	}
	return e.submit(outbox.Submission{Kind: kind, FileName: name, Data: data})
}

func (e *Engine) submit(sub outbox.Submission) (model.Message, error) {
	gen, peer := e.state.Current()
	if !peer.Valid() {
		return model.Message{}, ErrNoConversation
	}

	sub.ClientMsgID = model.LocalMessageID(uuid.NewString())
	sub.Peer = peer
	m := model.Message{
		ID:        sub.ClientMsgID,
		Sender:    e.self(),
		Receiver:  peer,
		Kind:      sub.Kind,
		Content:   sub.Text,
		CreatedAt: e.now(),
		Status:    model.StatusSent,
		Mine:      true,
		Local:     true,
	}
	if sub.Kind.IsMedia() {
		m.URL = "file://" + url.PathEscape(sub.FileName)
	}
	if !e.state.AddOptimistic(gen, m) {
		return model.Message{}, ErrNoConversation
	}
	e.publishUpdate(gen, peer)

	ctx := e.currentContext()
	err := e.sender.Submit(sub, func(r outbox.Result) {
		e.state.Settle(gen, sub.ClientMsgID)
		if r.Err != nil {
			e.logger.Debug("submission failed", zap.Error(r.Err), zap.String("client_msg_id", string(sub.ClientMsgID)))
		}
		e.fetchHistory(ctx, gen, peer)
	})
	if err != nil {
		e.state.Settle(gen, sub.ClientMsgID)
		return m, err
	}
	return m, nil
}
