package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatsync/internal/app"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	profileFlag string
	jsonFlag    bool
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Command-line access to a chatsync profile",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "also log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "error: profile is open in another process (pid %d)\n", held.PID)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// runtime is one profile's component graph for the duration of a command.
type runtime struct {
	name    string
	cfg     *config.Config
	fx      *fx.App
	started bool

	auth   *app.Auth
	client *backend.Client
	engine *intsync.Engine
	dir    *contacts.Directory
	ledger *ledger.Ledger
	bus    *bus.Bus
	db     *store.DB
	logger *zap.Logger
}

// openRuntime builds the profile's components. Commands that send or
// listen pass live=true: the profile lock is taken and background workers
// run. Read-only commands leave the workers stopped so they can run next
// to an open chattui.
func openRuntime(live bool) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	name := profile.Resolve(profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return nil, err
	}

	r := &runtime{name: name, cfg: cfg}
	r.fx = fx.New(
		app.Module(app.Params{Profile: name, Binary: "chatctl", Console: verboseFlag, Lock: live, Config: cfg}),
		fx.NopLogger,
		fx.Populate(&r.auth, &r.client, &r.engine, &r.dir, &r.ledger, &r.bus, &r.db, &r.logger),
	)
	if err := r.fx.Err(); err != nil {
		return nil, err
	}
	if !live {
		return r, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.fx.Start(ctx); err != nil {
		return nil, err
	}
	r.started = true
	return r, nil
}

func (r *runtime) close() {
	if r.started {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.fx.Stop(ctx)
		return
	}
	_ = r.db.Close()
	_ = r.logger.Sync()
}

// requireSession fails unless a credential is stored.
func (r *runtime) requireSession() error {
	if !r.auth.Session().Authenticated() {
		return errors.New("not logged in; run chatctl login")
	}
	return nil
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
