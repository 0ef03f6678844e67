package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

// pushServer upgrades every request and hands the connection to serve.
func pushServer(t *testing.T, serve func(*websocket.Conn, *http.Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		serve(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
}

func TestDialURL(t *testing.T) {
	got, err := DialURL("http://localhost:8000/ws/chat", "a.b.c")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ws://localhost:8000/ws/chat?token=a.b.c" {
		t.Errorf("DialURL = %q", got)
	}
	if _, err := DialURL("ftp://x", "t"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestRunDeliversEventsAndSkipsGarbage(t *testing.T) {
	tokens := make(chan string, 1)
	url := pushServer(t, func(conn *websocket.Conn, r *http.Request) {
		tokens <- r.URL.Query().Get("token")
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence_snapshot","online_user_ids":[4]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message_created","id":1,"from":4,"to":1,"content":"x"}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	})

	s, err := Dial(context.Background(), nil, url, "tok", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	err = s.Run(context.Background(), func(e Event) { got = append(got, e.Type()) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if <-tokens != "tok" {
		t.Error("token not passed as query parameter")
	}
	if len(got) != 2 || got[0] != TypePresenceSnapshot || got[1] != TypeMessageCreated {
		t.Errorf("events = %v", got)
	}
}

func TestRunSurvivesHandlerPanic(t *testing.T) {
	url := pushServer(t, func(conn *websocket.Conn, r *http.Request) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence_snapshot","online_user_ids":[]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence_snapshot","online_user_ids":[1]}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	})

	s, err := Dial(context.Background(), nil, url, "tok", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	_ = s.Run(context.Background(), func(Event) {
		calls++
		if calls == 1 {
			panic("boom")
		}
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	url := pushServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s, err := Dial(context.Background(), nil, url, "tok", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, func(Event) {}) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if err := s.SendReadAck("5"); err != ErrStreamClosed {
		t.Errorf("SendReadAck after close = %v, want ErrStreamClosed", err)
	}
}

func TestSendReadAck(t *testing.T) {
	acks := make(chan map[string]any, 2)
	url := pushServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			_ = json.Unmarshal(data, &m)
			acks <- m
		}
	})

	s, err := Dial(context.Background(), nil, url, "tok", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SendReadAck("local-abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SendReadAck("12"); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-acks:
		if m["type"] != TypeReadAck || m["id"] != float64(12) {
			t.Errorf("ack = %v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no ack received")
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), nil, "ws"+strings.TrimPrefix(srv.URL, "http"), "bad", nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want status in message", err)
	}
}
