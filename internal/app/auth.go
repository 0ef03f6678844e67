package app

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/identity"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"go.uber.org/zap"
)

// Auth owns the stored credential. Login and Register are the only
// operations whose errors are shown to the user.
type Auth struct {
	client *backend.Client
	db     *store.DB
	engine *intsync.Engine
	logger *zap.Logger
}

// NewAuth creates the credential service.
func NewAuth(c *backend.Client, db *store.DB, engine *intsync.Engine, logger *zap.Logger) *Auth {
	return &Auth{client: c, db: db, engine: engine, logger: logger}
}

// Session returns the active credential.
func (a *Auth) Session() identity.Session {
	return a.client.Session()
}

// Login authenticates and persists the token.
func (a *Auth) Login(ctx context.Context, email, password string) (identity.Session, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return identity.Session{}, err
	}
	if err := a.db.SetToken(s.Token); err != nil {
		return identity.Session{}, fmt.Errorf("store token: %w", err)
	}
	a.logger.Info("logged in", zap.Int64("user_id", int64(s.UserID)))
	return s, nil
}

// Register creates an account and logs into it.
func (a *Auth) Register(ctx context.Context, r backend.Registration) (identity.Session, error) {
	if err := a.client.Register(ctx, r); err != nil {
		return identity.Session{}, err
	}
	return a.Login(ctx, r.Email, r.Password)
}

// Logout closes the open conversation and forgets the credential.
func (a *Auth) Logout() error {
	a.engine.Close()
	a.client.SetSession(identity.Session{})
	if err := a.db.ClearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	a.logger.Info("logged out")
	return nil
}
