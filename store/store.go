// Package store holds the session cache of loaded content fragments.
package store

import (
	"sort"
	"sync"
)

// Store is the storage behind the content loader's cache.
// It maps section ids to fragment markup for the lifetime of a session:
// no entry expires and nothing is evicted, entries are removed only by
// Delete or Clear.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the fragment stored for the given id.
	// The boolean is false if nothing is stored.
	Get(id string) (string, bool, error)
	// Put stores the fragment under the given id, replacing any previous one.
	Put(id string, content string) error
	// Delete removes the entry for the given id. Missing ids are not an error.
	Delete(id string) error
	// Clear removes every entry.
	Clear() error
	// Keys returns the stored ids in lexical order.
	Keys() ([]string, error)
}

// MemStore is a map-backed Store.
type MemStore struct {
	mutex *sync.RWMutex
	db    map[string]string
}

func NewMemStore() MemStore {
	return MemStore{
		mutex: &sync.RWMutex{},
		db:    make(map[string]string),
	}
}

func (m MemStore) Get(id string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	content, ok := m.db[id]
	return content, ok, nil
}

func (m MemStore) Put(id string, content string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[id] = content
	return nil
}

func (m MemStore) Delete(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, id)
	return nil
}

func (m MemStore) Clear() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for id := range m.db {
		delete(m.db, id)
	}
	return nil
}

func (m MemStore) Keys() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	keys := make([]string, 0, len(m.db))
	for id := range m.db {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys, nil
}
