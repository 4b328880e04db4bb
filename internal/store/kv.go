package store

import (
	"database/sql"
	"fmt"
	"time"
)

// historyDepth is how many replaced values are retained per key.
const historyDepth = 5

// Get returns the value stored under key. ok is false when the key is absent.
func (db *DB) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Swap stores value under key only if the stored value still equals old.
// A nil old means the key must be absent. ok is false, and nothing is
// written, when another writer changed the key first. The replaced value
// is moved to kv_history.
func (db *DB) Swap(key string, old, value []byte) (ok bool, err error) {
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("swap %s: begin: %w", key, err)
	}
	defer tx.Rollback()

	var res sql.Result
	if old == nil {
		res, err = tx.Exec(`
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, value, now)
	} else {
		if err := archive(tx, key, now); err != nil {
			return false, fmt.Errorf("swap %s: %w", key, err)
		}
		res, err = tx.Exec(`
			UPDATE kv SET value = ?, updated_at = ? WHERE key = ? AND value = ?
		`, value, now, key, old)
	}
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}
	if n == 0 {
		return false, nil
	}
	if err := prune(tx, key); err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("swap %s: commit: %w", key, err)
	}
	return true, nil
}

func archive(tx *sql.Tx, key string, now int64) error {
	if _, err := tx.Exec(`
		INSERT INTO kv_history (key, value, replaced_at)
		SELECT key, value, ? FROM kv WHERE key = ?
	`, now, key); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func prune(tx *sql.Tx, key string) error {
	if _, err := tx.Exec(`
		DELETE FROM kv_history WHERE key = ? AND id NOT IN (
			SELECT id FROM kv_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, historyDepth); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Keys returns all stored keys in lexical order.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
