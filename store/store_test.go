package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemStore(),
		"sqlite": sqlite,
	}
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("home")
			require.NoError(t, err)
			assert.False(t, ok, "empty store should miss")

			require.NoError(t, s.Put("home", "<h2>Home</h2>"))
			require.NoError(t, s.Put("bab1", "<h2>Bab 1</h2>"))

			content, ok, err := s.Get("home")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "<h2>Home</h2>", content)

			require.NoError(t, s.Put("home", "<h2>Home v2</h2>"))
			content, _, _ = s.Get("home")
			assert.Equal(t, "<h2>Home v2</h2>", content)

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"bab1", "home"}, keys)

			require.NoError(t, s.Delete("home"))
			require.NoError(t, s.Delete("never-stored"))
			_, ok, _ = s.Get("home")
			assert.False(t, ok, "deleted entry should miss")

			require.NoError(t, s.Clear())
			keys, err = s.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestSQLiteStoresArePrivate(t *testing.T) {
	first, err := NewSQLiteStore()
	require.NoError(t, err)
	defer first.Close()
	second, err := NewSQLiteStore()
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Put("home", "first"))
	_, ok, err := second.Get("home")
	require.NoError(t, err)
	assert.False(t, ok, "stores must not share a database")
}

func TestSQLiteSchema(t *testing.T) {
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.db.Query("SELECT name FROM pragma_table_info('fragments') ORDER BY cid")
	require.NoError(t, err)
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"id", "content"}, columns)
}
