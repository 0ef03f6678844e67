// Package app wires the chat client's components together with fx.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/identity"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Binary  string // log file name, e.g. "chattui"
	Console bool   // also log to stderr
	Lock    bool   // take the profile lock
	Config  *config.Config
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatsync",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideClient,
			provideLedger,
			provideSender,
			provideEngine,
			provideDirectory,
			NewAuth,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return LoadConfig()
}

// LoadConfig reads ~/.chatsync/.env into the environment, then
// config.toml, then applies environment overrides.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(profile.DotEnvPath()); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	binary := p.Binary
	if binary == "" {
		binary = "chatsync"
	}
	return logging.New(profile.LogPath(p.Profile, binary), p.Profile, p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	if !p.Lock {
		return nil, nil
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened once the
// profile directory exists and, when requested, is owned by this process.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Debug("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideClient restores the stored credential, if any.
func provideClient(cfg *config.Config, db *store.DB, logger *zap.Logger) (*backend.Client, error) {
	c := backend.New(cfg.BaseURL, backend.WithTimeout(cfg.RequestTimeout.Duration))
	token, err := db.Token()
	if err != nil {
		return nil, err
	}
	if token != "" {
		s := identity.NewSession(token)
		c.SetSession(s)
		logger.Info("session restored", zap.Bool("identified", s.UserID.Valid()))
	}
	return c, nil
}

func provideLedger(db *store.DB, b *bus.Bus, logger *zap.Logger) *ledger.Ledger {
	return ledger.New(db, b, logger.Named("ledger"))
}

func provideSender(db *store.DB, c *backend.Client, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, c, b, logger.Named("outbox"))
}

func provideEngine(cfg *config.Config, c *backend.Client, sender *outbox.Sender, l *ledger.Ledger, m *status.Machine, db *store.DB, b *bus.Bus, logger *zap.Logger) (*intsync.Engine, error) {
	wsURL, err := cfg.PushURL()
	if err != nil {
		return nil, err
	}
	return intsync.NewEngine(c, sender, l, m, db, b, logger.Named("sync"), intsync.Options{
		WSURL:            wsURL,
		HistoryInterval:  cfg.HistoryInterval.Duration,
		PresenceInterval: cfg.PresenceInterval.Duration,
		FallbackInterval: cfg.FallbackInterval.Duration,
		OnlineWindow:     cfg.OnlineWindow.Duration,
	}), nil
}

func provideDirectory(db *store.DB, c *backend.Client, l *ledger.Ledger, b *bus.Bus, logger *zap.Logger) *contacts.Directory {
	return contacts.NewDirectory(db, c, l, b, logger.Named("contacts"))
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, b *bus.Bus, engine *intsync.Engine, sender *outbox.Sender, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sender.Start(ctx)
			engine.Start(ctx)
			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.Stop()
			cancel()
			sender.Stop()
			b.Close()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
