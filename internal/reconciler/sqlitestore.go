package reconciler

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

const stateKey = "notifications"

// SQLiteStore is the durable store used by native clients (the CLI
// watcher); it plays the role browser localStorage plays on the web. One
// file per client profile; cross-process consistency between two clients
// of the same user is out of scope.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open client store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init client store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM client_state WHERE key = ?`, stateKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLiteStore) Save(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO client_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, stateKey, data)
	return err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM client_state WHERE key = ?`, stateKey)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
