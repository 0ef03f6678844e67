// Package ledger keeps per-peer unread counters that survive restarts and
// broadcasts every change.
package ledger

import (
	"fmt"
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Change is the payload of an unread.changed event.
type Change struct {
	Peer  model.UserID
	Count int
}

// Ledger serializes counter mutations and mirrors them to the store.
type Ledger struct {
	mu     sync.Mutex
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// New creates a ledger backed by db.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{db: db, bus: b, logger: logger}
}

// Increment adds one to peer's counter and returns the new count.
func (l *Ledger) Increment(peer model.UserID) (int, error) {
	if !peer.Valid() {
		return 0, fmt.Errorf("increment unread: invalid peer %s", peer)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	count, err := l.db.IncrementUnread(int64(peer))
	if err != nil {
		return 0, fmt.Errorf("increment unread for %s: %w", peer, err)
	}
	l.publish(peer, count)
	l.logger.Debug("unread incremented", zap.Int64("peer", int64(peer)), zap.Int("count", count))
	return count, nil
}

// Clear resets peer's counter to zero.
func (l *Ledger) Clear(peer model.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.ClearUnread(int64(peer)); err != nil {
		return fmt.Errorf("clear unread for %s: %w", peer, err)
	}
	l.publish(peer, 0)
	return nil
}

// Get returns peer's counter. Read errors count as zero.
func (l *Ledger) Get(peer model.UserID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.db.UnreadCount(int64(peer))
	if err != nil {
		l.logger.Warn("read unread count", zap.Error(err), zap.Int64("peer", int64(peer)))
		return 0
	}
	return n
}

// Snapshot returns every non-zero counter.
func (l *Ledger) Snapshot() map[model.UserID]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := l.db.UnreadCounts()
	if err != nil {
		l.logger.Warn("read unread counts", zap.Error(err))
		return map[model.UserID]int{}
	}
	out := make(map[model.UserID]int, len(raw))
	for peer, n := range raw {
		out[model.UserID(peer)] = n
	}
	return out
}

// Subscribe returns a channel of counter changes and its cancel function.
func (l *Ledger) Subscribe(buf int) (<-chan Change, func()) {
	events, unsub := l.bus.Subscribe(bus.KindUnreadChanged, buf)
	out := make(chan Change, buf)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case evt, open := <-events:
				if !open {
					return
				}
				c, ok := evt.Payload.(Change)
				if !ok {
					continue
				}
				select {
				case out <- c:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			unsub()
			close(done)
		})
	}
}

func (l *Ledger) publish(peer model.UserID, count int) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(bus.NewEvent(bus.KindUnreadChanged, Change{Peer: peer, Count: count}))
}
