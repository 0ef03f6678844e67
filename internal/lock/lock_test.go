package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireCreatesProfileDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles", "work")

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = l.Release() }()

	if l.Path() != filepath.Join(dir, "LOCK") {
		t.Errorf("Path() = %q", l.Path())
	}
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "pid="+strconv.Itoa(os.Getpid())+"\n") {
		t.Errorf("lock content = %q", data)
	}
}

func TestSecondHolderSeesOwner(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Release() }()

	_, err = Acquire(dir)
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("err = %v, want *HeldError", err)
	}
	if held.PID != os.Getpid() || held.Path != first.Path() {
		t.Errorf("held = %+v", held)
	}
	if !strings.Contains(held.Error(), "PID "+strconv.Itoa(os.Getpid())) {
		t.Errorf("message = %q", held.Error())
	}
}

func TestReleaseFreesProfile(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()

	var none *Lock
	if err := none.Release(); err != nil {
		t.Errorf("nil Release: %v", err)
	}
}

func TestHeldErrorWithoutPID(t *testing.T) {
	err := &HeldError{Path: "/x/LOCK"}
	if got := err.Error(); got != "profile lock held by another process (/x/LOCK)" {
		t.Errorf("Error() = %q", got)
	}
	if got := parsePID("time=now\npid=42\n"); got != 42 {
		t.Errorf("parsePID = %d, want 42", got)
	}
	if got := parsePID("garbage"); got != 0 {
		t.Errorf("parsePID(garbage) = %d", got)
	}
}
