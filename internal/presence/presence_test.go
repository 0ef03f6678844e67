package presence

import (
	"testing"
	"time"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPollLastSeenOnlyFallsBackOffline(t *testing.T) {
	s := New(0, 0)
	s.MarkActive(base.Add(-2 * time.Minute))
	if !s.Snapshot().Online {
		t.Fatal("peer should start online")
	}

	now := base
	s.ApplyProfile(false, false, true, now.Add(-90*time.Second), now)
	s.Recompute(now.Add(15 * time.Second))

	snap := s.Snapshot()
	if snap.Online {
		t.Error("90s-old last_seen without online should fall back to offline")
	}
	if snap.Source != SourceFallback {
		t.Errorf("source = %v, want fallback", snap.Source)
	}
}

func TestRecentLastSeenFallsBackOnline(t *testing.T) {
	s := New(0, 0)
	s.ApplyProfile(false, false, true, base.Add(-10*time.Second), base)
	if !s.Recompute(base) {
		t.Error("Recompute should report a change")
	}
	if !s.Snapshot().Online {
		t.Error("10s-old last_seen should be online")
	}
}

func TestExplicitSignalBeatsFallback(t *testing.T) {
	s := New(0, 0)
	s.ApplyUpdate(true, base.Add(-5*time.Minute), base)

	s.Recompute(base.Add(5 * time.Second))
	if !s.Snapshot().Online {
		t.Error("fallback must not override a fresh explicit signal")
	}

	s.Recompute(base.Add(20 * time.Second))
	if s.Snapshot().Online {
		t.Error("fallback should apply once the explicit signal is older than the gap")
	}
}

func TestRecomputeWithoutLastSeenIsNoop(t *testing.T) {
	s := New(0, 0)
	s.ApplySnapshot(base.Add(-time.Hour))
	if s.Recompute(base) {
		t.Error("no last-seen: nothing to recompute")
	}
	if !s.Snapshot().Online {
		t.Error("snapshot signal should stand")
	}
}

func TestSnapshotKeepsLastSeen(t *testing.T) {
	s := New(0, 0)
	seen := base.Add(-time.Minute)
	s.ApplyUpdate(false, seen, base)
	s.ApplySnapshot(base.Add(time.Second))
	snap := s.Snapshot()
	if !snap.Online || !snap.LastSeen.Equal(seen) {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestProfileNullLastSeenClears(t *testing.T) {
	s := New(0, 0)
	s.MarkActive(base)
	s.ApplyProfile(true, false, true, time.Time{}, base.Add(time.Second))
	snap := s.Snapshot()
	if snap.Online || !snap.LastSeen.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestReset(t *testing.T) {
	s := New(time.Minute, time.Second)
	s.MarkActive(base)
	s.Reset()
	snap := s.Snapshot()
	if snap.Online || !snap.LastSeen.IsZero() || snap.Source != SourceNone {
		t.Errorf("after reset = %+v", snap)
	}
}

func TestSourceExplicit(t *testing.T) {
	for _, src := range []Source{SourcePoll, SourcePush, SourceSnapshot, SourceMessage} {
		if !src.Explicit() {
			t.Errorf("%v should be explicit", src)
		}
	}
	if SourceFallback.Explicit() || SourceNone.Explicit() {
		t.Error("fallback and none are not explicit")
	}
}
