package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "guilds.json")

	f, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, path, f.Path())
	require.Zero(t, f.Len())

	// The empty file must exist on disk after opening.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFile_PutGet(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "test.json"))
	require.NoError(t, err)

	require.NoError(t, f.Put("a", &record{Name: "first", Count: 1}))
	require.NoError(t, f.Put("b", &record{Name: "second", Count: 2}))

	got := new(record)
	ok, err := f.Get("a", got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, &record{Name: "first", Count: 1}, got)

	ok, err = f.Get("missing", got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFile_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")

	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Put("a", &record{Name: "kept", Count: 7}))

	// A fresh open must see the written record.
	reopened, err := Open(path)
	require.NoError(t, err)

	got := new(record)
	ok, err := reopened.Get("a", got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kept", got.Name)
}

func TestFile_Range(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "test.json"))
	require.NoError(t, err)

	require.NoError(t, f.Put("b", &record{Name: "second"}))
	require.NoError(t, f.Put("a", &record{Name: "first"}))

	var ids []string
	f.Range(func(id string, raw json.RawMessage) bool {
		ids = append(ids, id)
		return true
	})
	require.Equal(t, []string{"a", "b"}, ids)

	// Early exit.
	ids = nil
	f.Range(func(id string, raw json.RawMessage) bool {
		ids = append(ids, id)
		return false
	})
	require.Equal(t, []string{"a"}, ids)
}

func TestFile_PutWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.json")

	f, err := Open(path)
	require.NoError(t, err)

	// Replace the backing file with a directory so the rewrite fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err = f.Put("a", &record{Name: "doomed"})
	require.ErrorIs(t, err, ErrPersistence)

	// The in-memory table must still carry the attempted update.
	got := new(record)
	ok, err := f.Get("a", got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "doomed", got.Name)
}
