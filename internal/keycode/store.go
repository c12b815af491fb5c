// Package keycode implements the key-code store backing §4.5.1's key-code
// lookup, against a SQLite database with a single KeyCodes table. Grounded
// on original_source/src/central_controller/controller_db_interface.py,
// translated from the original's cursor-based query helpers into
// database/sql idiom.
package keycode

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Record is the row shape of the KeyCodes table for one key sequence.
type Record struct {
	KeyCode     string
	IsMasterKey bool
}

// Store wraps a SQLite connection to the KeyCodes table.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database file at path. The schema
// (KeyCodes(KeyCode TEXT PRIMARY KEY, IsMasterKey BOOLEAN)) is expected to
// already exist; Open creates it if missing so a fresh deployment boots
// without a separate migration step.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rwc", path))
	if err != nil {
		return nil, fmt.Errorf("keycode: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("keycode: connecting to %s: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS KeyCodes (
		KeyCode TEXT PRIMARY KEY,
		IsMasterKey BOOLEAN NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("keycode: ensuring schema on %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Lookup returns the record for keySequence. The second return value is
// false both when the code is absent and when the query itself fails —
// from the state manager's point of view a DB error and "no such code" are
// the same outcome: the entered sequence is treated as invalid (grounded on
// get_keycode_details returning None on either condition).
func (s *Store) Lookup(keySequence string) (Record, bool) {
	row := s.db.QueryRow(`SELECT KeyCode, IsMasterKey FROM KeyCodes WHERE KeyCode = ?`, keySequence)

	var rec Record
	if err := row.Scan(&rec.KeyCode, &rec.IsMasterKey); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Insert adds or replaces a key code. Not on the runtime lookup path: the
// controllers only ever call Lookup; codes are seeded directly into the
// KeyCodes table ahead of time.
func (s *Store) Insert(keySequence string, isMasterKey bool) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO KeyCodes (KeyCode, IsMasterKey) VALUES (?, ?)`, keySequence, isMasterKey)
	if err != nil {
		return fmt.Errorf("keycode: inserting %q: %w", keySequence, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
