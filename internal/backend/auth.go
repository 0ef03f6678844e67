package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/matheus3301/chatsync/internal/identity"
)

// Registration is the sign-up form.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Login exchanges credentials for a token and installs the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (identity.Session, error) {
	req, err := c.jsonRequest(http.MethodPost, "/login/", map[string]string{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return identity.Session{}, err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, req, &resp); err != nil {
		return identity.Session{}, err
	}
	if resp.Token == "" {
		return identity.Session{}, errors.New("login response carried no token")
	}

	s := identity.NewSession(resp.Token)
	c.SetSession(s)
	return s, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, r Registration) error {
	req, err := c.jsonRequest(http.MethodPost, "/register/", r, false)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
