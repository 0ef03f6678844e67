package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatsync/internal/model"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 1 << 20
)

// ErrStreamClosed is returned when writing to a closed stream.
var ErrStreamClosed = errors.New("stream closed")

// Handler receives every decoded event. It runs on the read goroutine.
type Handler func(Event)

// Stream is one open push channel.
type Stream struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
}

// DialURL appends the credential to the push endpoint.
func DialURL(wsURL, token string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported ws url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the push channel for token.
func Dial(ctx context.Context, dialer *websocket.Dialer, wsURL, token string, logger *zap.Logger) (*Stream, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	target, err := DialURL(wsURL, token)
	if err != nil {
		return nil, err
	}

	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial push channel: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return &Stream{
		conn:   conn,
		logger: logger,
		closed: make(chan struct{}),
	}, nil
}

// Run reads events until ctx is cancelled or the connection drops. Payloads
// that fail to decode are dropped. Run closes the stream before returning.
func (s *Stream) Run(ctx context.Context, handle Handler) error {
	defer s.Close()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()
	go s.pingLoop()

	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read push channel: %w", err)
		}
		// Any successful read proves the peer is alive.
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		evt, err := Decode(payload)
		if err != nil {
			s.logger.Debug("dropping push payload", zap.Error(err), zap.Int("bytes", len(payload)))
			continue
		}
		s.dispatch(handle, evt)
	}
}

func (s *Stream) dispatch(handle Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panicked", zap.Any("panic", r), zap.String("type", evt.Type()))
		}
	}()
	handle(evt)
}

func (s *Stream) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Stream) write(messageType int, data []byte) error {
	select {
	case <-s.closed:
		return ErrStreamClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// SendReadAck tells the server the message was displayed.
func (s *Stream) SendReadAck(id model.MessageID) error {
	if id == "" || id.IsLocal() {
		return nil
	}
	var wireID any = string(id)
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		wireID = n
	}
	data, err := json.Marshal(map[string]any{"type": TypeReadAck, "id": wireID})
	if err != nil {
		return fmt.Errorf("marshal read_ack: %w", err)
	}
	return s.write(websocket.TextMessage, data)
}

// Close sends a close frame and tears down the connection. Safe to call
// more than once.
func (s *Stream) Close() {
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		close(s.closed)
		_ = s.conn.Close()
	})
}
