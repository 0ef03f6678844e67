package store

import (
	"database/sql"
	"errors"
	"time"
)

// IncrementUnread adds one to peerID's counter and returns the new value.
func (db *DB) IncrementUnread(peerID int64) (int, error) {
	var count int
	err := db.QueryRow(`
		INSERT INTO unread (peer_id, count, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(peer_id) DO UPDATE SET
			count = unread.count + 1,
			updated_at = excluded.updated_at
		RETURNING count`,
		peerID, time.Now().UnixMilli()).Scan(&count)
	return count, err
}

// ClearUnread removes peerID's counter.
func (db *DB) ClearUnread(peerID int64) error {
	_, err := db.Exec(`DELETE FROM unread WHERE peer_id = ?`, peerID)
	return err
}

// UnreadCount returns peerID's counter, zero when absent.
func (db *DB) UnreadCount(peerID int64) (int, error) {
	var count int
	err := db.QueryRow(`SELECT count FROM unread WHERE peer_id = ?`, peerID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// UnreadCounts returns every non-zero counter keyed by peer id.
func (db *DB) UnreadCounts() (map[int64]int, error) {
	rows, err := db.Query(`SELECT peer_id, count FROM unread WHERE count > 0`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int64]int)
	for rows.Next() {
		var peer int64
		var count int
		if err := rows.Scan(&peer, &count); err != nil {
			return nil, err
		}
		counts[peer] = count
	}
	return counts, rows.Err()
}
