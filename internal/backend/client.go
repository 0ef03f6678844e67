// Package backend is the HTTP client for the chat server's REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/identity"
	"github.com/matheus3301/chatsync/internal/model"
)

// DefaultTimeout bounds every request when no client is injected.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 8 << 20

// ErrUnauthenticated is returned by authenticated calls made without a token.
var ErrUnauthenticated = errors.New("not logged in")

// StatusError is a non-2xx response. Detail and Fields are filled from the
// server's error body when it has one.
type StatusError struct {
	Code   int
	Detail string
	Fields map[string][]string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
		}
		return fmt.Sprintf("server returned %d: %s", e.Code, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// Unauthorized reports whether the server rejected the credential.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// Client talks to one backend origin on behalf of one session.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	session identity.Session
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// SetSession installs the credential used for authenticated calls.
func (c *Client) SetSession(s identity.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Session returns the current credential.
func (c *Client) Session() identity.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ResolveURL turns a server-relative attachment path into an absolute URL.
func (c *Client) ResolveURL(file string) string {
	if file == "" {
		return ""
	}
	if strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://") {
		return file
	}
	if !strings.HasPrefix(file, "/") {
		file = "/" + file
	}
	return c.baseURL + file
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	auth        bool
}

func (c *Client) jsonRequest(method, path string, payload any, auth bool) (request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal request: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(b),
		contentType: "application/json",
		auth:        auth,
	}, nil
}

// do performs r and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth {
		token := c.Session().Token
		if token == "" {
			return ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseStatusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.path, err)
	}
	return nil
}

// parseStatusError reads {"detail": "..."} or {"field": ["msg", ...]} bodies.
func parseStatusError(code int, data []byte) *StatusError {
	se := &StatusError{Code: code}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		se.Detail = strings.TrimSpace(string(data))
		if len(se.Detail) > 200 {
			se.Detail = se.Detail[:200]
		}
		return se
	}
	for key, val := range raw {
		msgs := decodeMessages(val)
		if len(msgs) == 0 {
			continue
		}
		if key == "detail" || key == "non_field_errors" {
			if se.Detail == "" {
				se.Detail = strings.Join(msgs, " ")
			}
			continue
		}
		if se.Fields == nil {
			se.Fields = make(map[string][]string)
		}
		se.Fields[key] = msgs
	}
	return se
}

func decodeMessages(val json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if err := json.Unmarshal(val, &list); err == nil {
		return list
	}
	return nil
}

// Self returns the session's user id, or zero when unknown.
func (c *Client) Self() model.UserID {
	return c.Session().UserID
}
