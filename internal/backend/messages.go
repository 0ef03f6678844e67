package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/matheus3301/chatsync/internal/model"
)

// wireMessage is the server's message shape. Older servers send is_read
// instead of status.
type wireMessage struct {
	ID          model.MessageID `json:"id"`
	Sender      model.UserID    `json:"sender"`
	Receiver    model.UserID    `json:"receiver"`
	Content     *string         `json:"content"`
	File        *string         `json:"file"`
	MessageType string          `json:"message_type"`
	CreatedAt   string          `json:"created_at"`
	Status      string          `json:"status"`
	IsRead      bool            `json:"is_read"`
}

func (c *Client) normalize(w wireMessage, self model.UserID) model.Message {
	status := model.NormalizeStatus(w.Status)
	if w.Status == "" && w.IsRead {
		status = model.StatusRead
	}
	m := model.Message{
		ID:        w.ID,
		Sender:    w.Sender,
		Receiver:  w.Receiver,
		Kind:      model.NormalizeKind(w.MessageType),
		CreatedAt: ParseTime(w.CreatedAt),
		Status:    status,
		Mine:      self.Valid() && w.Sender == self,
	}
	if w.Content != nil {
		m.Content = *w.Content
	}
	if w.File != nil {
		m.URL = c.ResolveURL(*w.File)
	}
	return m
}

// History returns the conversation with peer in server order.
func (c *Client) History(ctx context.Context, peer model.UserID) ([]model.Message, error) {
	if !peer.Valid() {
		return nil, fmt.Errorf("history: invalid peer %s", peer)
	}
	q := url.Values{}
	q.Set("with", peer.String())

	var wire []wireMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/messages/", query: q, auth: true}, &wire); err != nil {
		return nil, err
	}

	self := c.Self()
	out := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		out = append(out, c.normalize(w, self))
	}
	return out, nil
}

// SendText posts a text message and returns the stored record.
func (c *Client) SendText(ctx context.Context, peer model.UserID, text string) (model.Message, error) {
	req, err := c.jsonRequest(http.MethodPost, "/messages/send/", map[string]any{
		"receiver":     int64(peer),
		"content":      text,
		"message_type": string(model.KindText),
	}, true)
	if err != nil {
		return model.Message{}, err
	}
	var w wireMessage
	if err := c.do(ctx, req, &w); err != nil {
		return model.Message{}, err
	}
	return c.normalize(w, c.Self()), nil
}

// SendMedia uploads an audio or video attachment as multipart form data.
func (c *Client) SendMedia(ctx context.Context, peer model.UserID, kind model.Kind, name string, data []byte) (model.Message, error) {
	if !kind.IsMedia() {
		return model.Message{}, fmt.Errorf("send media: unsupported kind %q", kind)
	}
	if len(data) == 0 {
		return model.Message{}, errors.New("send media: empty attachment")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("receiver", peer.String())
	_ = w.WriteField("message_type", string(kind))
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return model.Message{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return model.Message{}, fmt.Errorf("write file data: %w", err)
	}
	if err := w.Close(); err != nil {
		return model.Message{}, fmt.Errorf("close multipart: %w", err)
	}

	var wm wireMessage
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/messages/send/",
		body:        &buf,
		contentType: w.FormDataContentType(),
		auth:        true,
	}, &wm)
	if err != nil {
		return model.Message{}, err
	}
	return c.normalize(wm, c.Self()), nil
}
