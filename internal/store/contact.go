package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReplaceContacts swaps the cached directory for rows in a single transaction.
func (db *DB) ReplaceContacts(rows []ContactRow) error {
	now := time.Now().UnixMilli()
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM contacts`); err != nil {
			return fmt.Errorf("clear contacts: %w", err)
		}
		for _, c := range rows {
			if _, err := tx.Exec(`
				INSERT INTO contacts (id, first_name, last_name, email, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					first_name = excluded.first_name,
					last_name = excluded.last_name,
					email = excluded.email,
					updated_at = excluded.updated_at`,
				c.ID, c.FirstName, c.LastName, c.Email, now); err != nil {
				return fmt.Errorf("insert contact %d: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ListContacts returns the cached directory ordered by name.
func (db *DB) ListContacts() ([]ContactRow, error) {
	rows, err := db.Query(`
		SELECT id, first_name, last_name, email FROM contacts
		ORDER BY first_name COLLATE NOCASE, last_name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ContactRow
	for rows.Next() {
		var c ContactRow
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContact returns a cached contact, or nil when unknown.
func (db *DB) GetContact(id int64) (*ContactRow, error) {
	var c ContactRow
	err := db.QueryRow(`SELECT id, first_name, last_name, email FROM contacts WHERE id = ?`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactCount returns the number of cached contacts.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}
