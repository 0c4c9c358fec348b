package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/xid"
)

// SQLiteStore keeps fragments in an in-memory SQLite database.
// Every store gets its own private database which disappears with the
// process (or on Close), so it never outlives the session.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens a new private in-memory database.
func NewSQLiteStore() (SQLiteStore, error) {
	// a named shared-cache memory db is visible to every pooled connection,
	// the unique name keeps it private to this store
	dsn := fmt.Sprintf("file:section-viewer-%s?mode=memory&cache=shared", xid.New().String())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("open session db: %w", err)
	}
	// the database lives as long as at least one connection does
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS fragments (
		id TEXT PRIMARY KEY,
		content TEXT
	)`); err != nil {
		db.Close()
		return SQLiteStore{}, fmt.Errorf("create fragments table: %w", err)
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteStore) Get(id string) (string, bool, error) {
	var content string
	err := s.db.QueryRow("SELECT content FROM fragments WHERE id = ?", id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

func (s SQLiteStore) Put(id string, content string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO fragments (id, content) VALUES (?, ?)", id, content)
	return err
}

func (s SQLiteStore) Delete(id string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM fragments WHERE id = ?", id)
	return err
}

func (s SQLiteStore) Clear() error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM fragments")
	return err
}

func (s SQLiteStore) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM fragments ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return keys, err
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

// Close drops the database.
func (s SQLiteStore) Close() error {
	return s.db.Close()
}
