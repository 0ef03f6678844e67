// Package contacts keeps the user directory: fetched from the server,
// cached locally and searchable.
package contacts

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lister fetches the directory from the server.
type Lister interface {
	ListUsers(ctx context.Context) ([]model.Contact, error)
}

// UnreadSource reports per-peer unread counts.
type UnreadSource interface {
	Snapshot() map[model.UserID]int
}

// Entry is one row of the contact list.
type Entry struct {
	model.Contact
	Unread int
}

// Directory serves the cached contact list.
type Directory struct {
	db     *store.DB
	lister Lister
	unread UnreadSource
	bus    *bus.Bus
	logger *zap.Logger
}

// NewDirectory creates a directory over the local cache.
func NewDirectory(db *store.DB, lister Lister, unread UnreadSource, b *bus.Bus, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{db: db, lister: lister, unread: unread, bus: b, logger: logger}
}

// Refresh replaces the cache with the server's list. On failure the cache
// is left as it was.
func (d *Directory) Refresh(ctx context.Context) (int, error) {
	users, err := d.lister.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	rows := make([]store.ContactRow, 0, len(users))
	for _, u := range users {
		if !u.ID.Valid() {
			continue
		}
		rows = append(rows, store.ContactRow{ID: int64(u.ID), FirstName: u.FirstName, LastName: u.LastName, Email: u.Email})
	}
	if err := d.db.ReplaceContacts(rows); err != nil {
		return 0, fmt.Errorf("cache contacts: %w", err)
	}
	d.logger.Info("contacts refreshed", zap.Int("count", len(rows)))
	if d.bus != nil {
		d.bus.Publish(bus.NewEvent(bus.KindContactsRefreshed, len(rows)))
	}
	return len(rows), nil
}

// Get returns a cached contact, or nil when unknown.
func (d *Directory) Get(id model.UserID) (*model.Contact, error) {
	row, err := d.db.GetContact(int64(id))
	if err != nil || row == nil {
		return nil, err
	}
	c := fromRow(*row)
	return &c, nil
}

// Entries returns cached contacts matching query, with unread counts.
// An empty query matches everyone.
func (d *Directory) Entries(query string) ([]Entry, error) {
	rows, err := d.db.ListContacts()
	if err != nil {
		return nil, err
	}
	var counts map[model.UserID]int
	if d.unread != nil {
		counts = d.unread.Snapshot()
	}

	needle := Fold(query)
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		c := fromRow(r)
		if needle != "" && !Matches(c, needle) {
			continue
		}
		out = append(out, Entry{Contact: c, Unread: counts[c.ID]})
	}
	return out, nil
}

// Matches reports whether folded needle occurs in the contact's name or
// email.
func Matches(c model.Contact, needle string) bool {
	hay := Fold(c.FirstName + " " + c.LastName + " " + c.Email)
	return strings.Contains(hay, needle)
}

// Fold lowercases s and strips diacritics so "José" matches "jose".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}

func fromRow(r store.ContactRow) model.Contact {
	return model.Contact{ID: model.UserID(r.ID), FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}
}
