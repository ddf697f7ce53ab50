package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Get("logTable")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put("logTable", []byte(`[1]`)))
	require.NoError(t, s.Put("logTable", []byte(`[1,2]`)))

	data, err := s.Get("logTable")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(data))

	_, err = s.Get("other")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "logTable.json", entries[0].Name())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open("file", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("redis", "")
	assert.Error(t, err)
}
