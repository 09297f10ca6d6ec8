package textstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMissingFileStartsEmpty(t *testing.T) {
	st, err := New(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, st.Count())
	assert.Equal(t, "", st.Get("anything"))
}

func TestNewCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := New(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted")
}

func TestPutGetPersistRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st, err := New(path)
	require.NoError(t, err)

	st.Put("chunk-1", "full text one")
	st.Put("chunk-2", "full text two")
	require.NoError(t, st.Persist())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Count())
	assert.Equal(t, "full text one", reloaded.Get("chunk-1"))
	assert.Equal(t, "", reloaded.Get("chunk-3"))
	assert.ElementsMatch(t, []string{"chunk-1", "chunk-2"}, reloaded.Keys())
}

func TestPersistIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st, err := New(path)
	require.NoError(t, err)
	st.Put("b", "bee")
	st.Put("a", "ay")
	st.Put("c", "see")

	require.NoError(t, st.Persist())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, st.Persist())
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPersistOverwritesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st, err := New(path)
	require.NoError(t, err)
	st.Put("a", "one")
	require.NoError(t, st.Persist())

	st.Put("a", "two")
	require.NoError(t, st.Persist())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, "two", reloaded.Get("a"))
	assert.Equal(t, 1, reloaded.Count())
}
