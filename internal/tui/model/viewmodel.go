// Package model holds TUI state that outlives a single redraw.
package model

import (
	"context"
	"sync"

	"github.com/matheus3301/chatsync/internal/contacts"
	"github.com/matheus3301/chatsync/internal/ledger"
	"github.com/matheus3301/chatsync/internal/model"
)

// Directory is the contact source behind the list page.
type Directory interface {
	Refresh(ctx context.Context) (int, error)
	Entries(query string) ([]contacts.Entry, error)
	Get(id model.UserID) (*model.Contact, error)
}

// ViewModel caches the contact list and the active filter. It is safe for
// use from loader goroutines and the draw loop.
type ViewModel struct {
	mu sync.RWMutex

	dir     Directory
	query   string
	entries []contacts.Entry
	all     map[model.UserID]contacts.Entry
}

// NewViewModel creates a view model over dir.
func NewViewModel(dir Directory) *ViewModel {
	return &ViewModel{dir: dir, all: make(map[model.UserID]contacts.Entry)}
}

// Refresh fetches the directory from the server, then reloads the cache.
// The cached list is still loaded when the fetch fails.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	_, err := vm.dir.Refresh(ctx)
	if lerr := vm.Reload(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// Reload re-reads the local cache with the current filter.
func (vm *ViewModel) Reload() error {
	vm.mu.RLock()
	query := vm.query
	vm.mu.RUnlock()
	return vm.load(query)
}

// SetQuery applies a new filter.
func (vm *ViewModel) SetQuery(query string) error {
	return vm.load(query)
}

func (vm *ViewModel) load(query string) error {
	everyone, err := vm.dir.Entries("")
	if err != nil {
		return err
	}
	filtered := everyone
	if query != "" {
		if filtered, err = vm.dir.Entries(query); err != nil {
			return err
		}
	}

	all := make(map[model.UserID]contacts.Entry, len(everyone))
	for _, e := range everyone {
		all[e.ID] = e
	}

	vm.mu.Lock()
	vm.query = query
	vm.entries = filtered
	vm.all = all
	vm.mu.Unlock()
	return nil
}

// Entries returns the filtered list, the filter and the unfiltered count.
func (vm *ViewModel) Entries() ([]contacts.Entry, string, int) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]contacts.Entry, len(vm.entries))
	copy(out, vm.entries)
	return out, vm.query, len(vm.all)
}

// Query returns the active filter.
func (vm *ViewModel) Query() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.query
}

// ApplyUnread records a ledger change.
func (vm *ViewModel) ApplyUnread(c ledger.Change) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if e, ok := vm.all[c.Peer]; ok {
		e.Unread = c.Count
		vm.all[c.Peer] = e
	}
	for i := range vm.entries {
		if vm.entries[i].ID == c.Peer {
			vm.entries[i].Unread = c.Count
		}
	}
}

// UnreadTotal sums unread counts across all cached contacts.
func (vm *ViewModel) UnreadTotal() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	n := 0
	for _, e := range vm.all {
		n += e.Unread
	}
	return n
}

// Contact returns the cached contact for id. Unknown ids still yield a
// contact carrying the id so callers can render something.
func (vm *ViewModel) Contact(id model.UserID) model.Contact {
	vm.mu.RLock()
	e, ok := vm.all[id]
	vm.mu.RUnlock()
	if ok {
		return e.Contact
	}
	if c, err := vm.dir.Get(id); err == nil && c != nil {
		return *c
	}
	return model.Contact{ID: id}
}

// Names returns the display names of contacts matching query.
func (vm *ViewModel) Names(query string) []string {
	entries, err := vm.dir.Entries(query)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.DisplayName())
	}
	return out
}

// Find returns the first contact matching query.
func (vm *ViewModel) Find(query string) (model.Contact, bool) {
	entries, err := vm.dir.Entries(query)
	if err != nil || len(entries) == 0 {
		return model.Contact{}, false
	}
	return entries[0].Contact, true
}
