// Package identity derives the current user from the bearer credential.
package identity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatsync/internal/model"
)

// UserIDClaim is the JWT claim carrying the numeric user id.
const UserIDClaim = "user_id"

var parser = jwt.NewParser(jwt.WithJSONNumber())

// ResolveUserID extracts the user id from an opaque bearer token without
// verifying its signature. Any malformed token resolves to (0, false).
func ResolveUserID(token string) (id model.UserID, ok bool) {
	defer func() {
		if recover() != nil {
			id, ok = 0, false
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	return claimToUserID(claims[UserIDClaim])
}

func claimToUserID(v any) (model.UserID, bool) {
	var f float64
	switch c := v.(type) {
	case json.Number:
		if n, err := c.Int64(); err == nil {
			return positive(n)
		}
		parsed, err := c.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return positive(int64(f))
}

func positive(n int64) (model.UserID, bool) {
	if n <= 0 {
		return 0, false
	}
	return model.UserID(n), true
}

// Session is the current credential and the user it resolves to.
type Session struct {
	Token  string
	UserID model.UserID
}

// NewSession resolves the user id for token. An unresolvable token yields an
// unauthenticated session that still carries the raw token.
func NewSession(token string) Session {
	id, _ := ResolveUserID(token)
	return Session{Token: strings.TrimSpace(token), UserID: id}
}

// Authenticated reports whether both a credential and a user id are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.UserID.Valid()
}
