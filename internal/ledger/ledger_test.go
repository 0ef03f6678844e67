package ledger

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap/zaptest"
)

func testLedger(t *testing.T) (*Ledger, *bus.Bus, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	b := bus.New()
	return New(db, b, zaptest.NewLogger(t)), b, db
}

func TestIncrementBroadcasts(t *testing.T) {
	l, b, _ := testLedger(t)
	ch, unsub := b.Subscribe("unread.", 8)
	defer unsub()

	n, err := l.Increment(3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	select {
	case evt := <-ch:
		c := evt.Payload.(Change)
		if c.Peer != 3 || c.Count != 1 {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unread.changed")
	}
}

func TestIncrementRejectsInvalidPeer(t *testing.T) {
	l, _, _ := testLedger(t)
	if _, err := l.Increment(0); err == nil {
		t.Error("expected error for peer 0")
	}
}

func TestClearResetsAndBroadcastsZero(t *testing.T) {
	l, b, _ := testLedger(t)
	_, _ = l.Increment(4)
	_, _ = l.Increment(4)

	ch, unsub := b.Subscribe("unread.", 8)
	defer unsub()

	if err := l.Clear(4); err != nil {
		t.Fatal(err)
	}
	if got := l.Get(4); got != 0 {
		t.Errorf("Get = %d, want 0", got)
	}
	select {
	case evt := <-ch:
		if c := evt.Payload.(Change); c.Count != 0 || c.Peer != 4 {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for clear broadcast")
	}
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	l, _, _ := testLedger(t)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Increment(9); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := l.Get(9); got != n {
		t.Errorf("Get = %d, want %d", got, n)
	}
}

func TestCountsSurviveReopen(t *testing.T) {
	l, _, db := testLedger(t)
	_, _ = l.Increment(2)
	_, _ = l.Increment(5)
	_, _ = l.Increment(5)

	again := New(db, bus.New(), nil)
	snap := again.Snapshot()
	want := map[model.UserID]int{2: 1, 5: 2}
	if len(snap) != len(want) {
		t.Fatalf("snapshot = %v, want %v", snap, want)
	}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("snapshot[%d] = %d, want %d", k, snap[k], v)
		}
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	l, _, _ := testLedger(t)
	ch, cancel := l.Subscribe(4)
	defer cancel()

	_, _ = l.Increment(7)
	select {
	case c := <-ch:
		if c.Peer != 7 || c.Count != 1 {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	cancel()
}
