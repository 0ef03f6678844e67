package store

import (
	"database/sql"
	"errors"
	"time"
)

// TokenKey is the settings key holding the bearer credential.
const TokenKey = "token"

// SetSetting stores a value under key.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// Setting returns the value for key, or "" when unset.
func (db *DB) Setting(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// DeleteSetting removes key.
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// Token returns the stored credential, or "" when logged out.
func (db *DB) Token() (string, error) { return db.Setting(TokenKey) }

// SetToken persists the credential.
func (db *DB) SetToken(token string) error { return db.SetSetting(TokenKey, token) }

// ClearToken forgets the credential.
func (db *DB) ClearToken() error { return db.DeleteSetting(TokenKey) }
