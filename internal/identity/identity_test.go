package identity

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestResolveUserID(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   int64
		ok     bool
	}{
		{"number", jwt.MapClaims{"user_id": 7}, 7, true},
		{"numeric string", jwt.MapClaims{"user_id": "12"}, 12, true},
		{"integral float", jwt.MapClaims{"user_id": 3.0}, 3, true},
		{"fractional", jwt.MapClaims{"user_id": 3.5}, 0, false},
		{"missing", jwt.MapClaims{"email": "a@b.c"}, 0, false},
		{"non numeric", jwt.MapClaims{"user_id": "abc"}, 0, false},
		{"zero", jwt.MapClaims{"user_id": 0}, 0, false},
		{"negative", jwt.MapClaims{"user_id": -4}, 0, false},
		{"object", jwt.MapClaims{"user_id": map[string]any{"id": 1}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveUserID(signed(t, tt.claims))
			if ok != tt.ok || int64(got) != tt.want {
				t.Errorf("ResolveUserID() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolveUserIDMalformedNeverPanics(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":5}`))
	inputs := []string{
		"",
		"   ",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		header + ".!!!." + "sig",
		header + "." + base64.RawURLEncoding.EncodeToString([]byte("{not json")) + ".sig",
		"." + body + ".sig",
		header + "." + body,
		"\x00\x01\x02",
	}
	for _, in := range inputs {
		if id, ok := ResolveUserID(in); ok || id != 0 {
			t.Errorf("ResolveUserID(%q) = (%d, %v), want (0, false)", in, id, ok)
		}
	}
}

func TestResolveIgnoresSignature(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"user_id": 9})
	// Tamper with the signature; the client cannot verify it anyway.
	tampered := tok[:len(tok)-2] + "xx"
	if id, ok := ResolveUserID(tampered); !ok || id != 9 {
		t.Errorf("ResolveUserID(tampered) = (%d, %v), want (9, true)", id, ok)
	}
}

func TestSessionAuthenticated(t *testing.T) {
	if NewSession("").Authenticated() {
		t.Error("empty token must be unauthenticated")
	}
	if NewSession("garbage").Authenticated() {
		t.Error("garbage token must be unauthenticated")
	}
	s := NewSession(signed(t, jwt.MapClaims{"user_id": 4}))
	if !s.Authenticated() || s.UserID != 4 {
		t.Errorf("session = %+v, want authenticated user 4", s)
	}
}
