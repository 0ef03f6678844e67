package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatsync/internal/identity"
	"github.com/matheus3301/chatsync/internal/model"
)

func signedToken(t *testing.T, userID int) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.SetSession(identity.NewSession(signedToken(t, 1)))
	return c
}

func TestLoginInstallsSession(t *testing.T) {
	tok := signedToken(t, 42)
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" || body["password"] != "pw" {
			t.Errorf("body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": tok})
	}))
	c.SetSession(identity.Session{})

	s, err := c.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if s.UserID != 42 || !s.Authenticated() {
		t.Errorf("session = %+v", s)
	}
	if c.Self() != 42 {
		t.Errorf("Self() = %d, want 42", c.Self())
	}
}

func TestLoginSurfacesDetail(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Invalid credentials."}`)
	}))

	_, err := c.Login(context.Background(), "a@b.c", "bad")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != 401 || se.Detail != "Invalid credentials." || !se.Unauthorized() {
		t.Errorf("status error = %+v", se)
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"email":["user with this email already exists."],"password":"too short"}`)
	}))

	err := c.Register(context.Background(), Registration{Email: "a@b.c", Password: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}
	if len(se.Fields["email"]) != 1 || se.Fields["password"][0] != "too short" {
		t.Errorf("fields = %v", se.Fields)
	}
	if !strings.Contains(se.Error(), "email: user with this email") {
		t.Errorf("Error() = %q", se.Error())
	}
}

func TestHistoryNormalizes(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("with"); got != "2" {
			t.Errorf("with = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing bearer token")
		}
		_, _ = io.WriteString(w, `[
			{"id":10,"sender":1,"receiver":2,"content":"hi","message_type":"text","file":null,"created_at":"2024-05-01T10:00:00.123456Z","is_read":false},
			{"id":11,"sender":2,"receiver":1,"content":null,"message_type":"audio","file":"/media/a.mp3","created_at":"2024-05-01T10:01:00Z","status":"delivered"},
			{"id":"12","sender":"2","receiver":1,"content":"ok","message_type":"","is_read":true}
		]`)
	}))

	msgs, err := c.History(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d", len(msgs))
	}
	if !msgs[0].Mine || msgs[0].ID != "10" || msgs[0].Status != model.StatusSent || msgs[0].CreatedAt.IsZero() {
		t.Errorf("msg0 = %+v", msgs[0])
	}
	if msgs[1].Mine || msgs[1].Kind != model.KindAudio || msgs[1].URL != c.BaseURL()+"/media/a.mp3" || msgs[1].Status != model.StatusDelivered {
		t.Errorf("msg1 = %+v", msgs[1])
	}
	if msgs[2].Kind != model.KindText || msgs[2].Status != model.StatusRead || msgs[2].Sender != 2 {
		t.Errorf("msg2 = %+v", msgs[2])
	}
}

func TestHistoryRequiresSession(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	c.SetSession(identity.Session{})

	if _, err := c.History(context.Background(), 2); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if calls.Load() != 0 {
		t.Error("request should not reach the server")
	}
}

func TestGetUserPresenceFields(t *testing.T) {
	bodies := map[string]string{
		"/users/2/": `{"id":2,"first_name":"Ana","last_name":"","email":"a@x","online":true,"last_seen":"2024-05-01T10:00:00Z"}`,
		"/users/3/": `{"id":3,"first_name":"Bo","last_name":"","email":"b@x","last_seen":null}`,
		"/users/4/": `{"id":4,"first_name":"Cy","last_name":"","email":"c@x"}`,
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, bodies[r.URL.Path])
	}))
	ctx := context.Background()

	p, err := c.GetUser(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasOnline || !p.Online || !p.HasLastSeen || p.LastSeen.IsZero() || p.FirstName != "Ana" {
		t.Errorf("user 2 = %+v", p)
	}

	p, _ = c.GetUser(ctx, 3)
	if p.HasOnline || !p.HasLastSeen || !p.LastSeen.IsZero() {
		t.Errorf("user 3 = %+v", p)
	}

	p, _ = c.GetUser(ctx, 4)
	if p.HasOnline || p.HasLastSeen {
		t.Errorf("user 4 = %+v", p)
	}
}

func TestListUsers(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":2,"first_name":"Ana","last_name":"Lima","email":"a@x"}]`)
	}))
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].DisplayName() != "Ana Lima" {
		t.Errorf("users = %+v", users)
	}
}

func TestSendText(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["content"] != "hello" || body["message_type"] != "text" || body["receiver"] != float64(2) {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":99,"sender":1,"receiver":2,"content":"hello","message_type":"text"}`)
	}))

	m, err := c.SendText(context.Background(), 2, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "99" || !m.Mine {
		t.Errorf("message = %+v", m)
	}
}

func TestSendMediaMultipart(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if r.FormValue("receiver") != "2" || r.FormValue("message_type") != "video" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "clip.mp4" || string(data) != "binary" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":100,"sender":1,"receiver":2,"message_type":"video","file":"http://cdn/x.mp4"}`)
	}))

	m, err := c.SendMedia(context.Background(), 2, model.KindVideo, "clip.mp4", []byte("binary"))
	if err != nil {
		t.Fatal(err)
	}
	if m.URL != "http://cdn/x.mp4" || m.Kind != model.KindVideo {
		t.Errorf("message = %+v", m)
	}
}

func TestSendMediaRejectsText(t *testing.T) {
	c := New("http://unused")
	if _, err := c.SendMedia(context.Background(), 2, model.KindText, "a", []byte("x")); err == nil {
		t.Error("expected error for text kind")
	}
}

func TestResolveURL(t *testing.T) {
	c := New("http://host:8000/")
	cases := map[string]string{
		"":                  "",
		"/media/a.mp3":      "http://host:8000/media/a.mp3",
		"media/a.mp3":       "http://host:8000/media/a.mp3",
		"https://cdn/a.mp3": "https://cdn/a.mp3",
	}
	for in, want := range cases {
		if got := c.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}
