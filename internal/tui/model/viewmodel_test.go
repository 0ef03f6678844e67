package model

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/model"
)

type fakeDirectory struct {
	entries    []contacts.Entry
	refreshErr error
	refreshed  int
}

func (f *fakeDirectory) Refresh(context.Context) (int, error) {
	f.refreshed++
	return len(f.entries), f.refreshErr
}

func (f *fakeDirectory) Entries(query string) ([]contacts.Entry, error) {
	var out []contacts.Entry
	for _, e := range f.entries {
		if query == "" || contacts.Matches(e.Contact, contacts.Fold(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeDirectory) Get(id model.UserID) (*model.Contact, error) {
	for _, e := range f.entries {
		if e.ID == id {
			c := e.Contact
			return &c, nil
		}
	}
	return nil, nil
}

func newFake() *fakeDirectory {
	return &fakeDirectory{entries: []contacts.Entry{
		{Contact: model.Contact{ID: 1, FirstName: "José", LastName: "Silva"}, Unread: 1},
		{Contact: model.Contact{ID: 2, FirstName: "Maria", Email: "maria@example.com"}},
	}}
}

func TestRefreshKeepsCacheOnFailure(t *testing.T) {
	dir := newFake()
	dir.refreshErr = errors.New("offline")
	vm := NewViewModel(dir)

	if err := vm.Refresh(context.Background()); err == nil || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("err = %v", err)
	}
	entries, _, total := vm.Entries()
	if len(entries) != 2 || total != 2 {
		t.Errorf("entries = %d total = %d", len(entries), total)
	}
}

func TestQueryFiltersButTotalCountsAll(t *testing.T) {
	vm := NewViewModel(newFake())
	if err := vm.SetQuery("jose"); err != nil {
		t.Fatal(err)
	}
	entries, q, total := vm.Entries()
	if len(entries) != 1 || entries[0].ID != 1 || q != "jose" || total != 2 {
		t.Errorf("entries = %+v q = %q total = %d", entries, q, total)
	}

	if err := vm.Reload(); err != nil {
		t.Fatal(err)
	}
	if vm.Query() != "jose" {
		t.Error("reload dropped the filter")
	}
}

func TestApplyUnread(t *testing.T) {
	vm := NewViewModel(newFake())
	if err := vm.SetQuery("maria"); err != nil {
		t.Fatal(err)
	}
	vm.ApplyUnread(ledger.Change{Peer: 2, Count: 3})
	vm.ApplyUnread(ledger.Change{Peer: 1, Count: 0})

	entries, _, _ := vm.Entries()
	if entries[0].Unread != 3 {
		t.Errorf("filtered unread = %d", entries[0].Unread)
	}
	if got := vm.UnreadTotal(); got != 3 {
		t.Errorf("total = %d", got)
	}
}

func TestContactFallsBackToID(t *testing.T) {
	vm := NewViewModel(newFake())
	if got := vm.Contact(2); got.FirstName != "Maria" {
		t.Errorf("uncached lookup = %+v", got)
	}
	if got := vm.Contact(99); got.ID != 99 || got.DisplayName() != "99" {
		t.Errorf("unknown = %+v", got)
	}
	if c, ok := vm.Find("silva"); !ok || c.ID != 1 {
		t.Errorf("find = %+v %v", c, ok)
	}
}

func TestNamesFollowQuery(t *testing.T) {
	vm := NewViewModel(newFake())
	if got := vm.Names("jose"); len(got) != 1 || got[0] != "José Silva" {
		t.Errorf("Names(jose) = %q", got)
	}
	if got := vm.Names(""); len(got) != 2 {
		t.Errorf("Names(\"\") = %q", got)
	}
}
