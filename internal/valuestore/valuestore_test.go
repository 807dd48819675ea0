package valuestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	dir := t.TempDir()

	jsonStore, err := OpenJSONFile(filepath.Join(dir, "values.json"))
	require.NoError(t, err)

	boltStore, err := OpenBolt(filepath.Join(dir, "values.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	return map[string]Store{
		"memory":   NewMemory(),
		"jsonfile": jsonStore,
		"bolt":     boltStore,
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for name, s := range testStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(1)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(1, "hello world"))
			text, ok, err := s.Get(1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "hello world", text)

			require.NoError(t, s.Delete(1))
			_, ok, err = s.Get(1)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestJSONFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.json")

	s, err := OpenJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(7, "persisted text"))

	reopened, err := OpenJSONFile(path)
	require.NoError(t, err)
	text, ok, err := reopened.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "persisted text", text)
}

func TestFilterExactNarrowsToTrueMatches(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Put(1, "the quick brown fox"))
	require.NoError(t, s.Put(2, "lazy dog sleeps"))
	require.NoError(t, s.Put(3, "another fox sighting"))

	got, err := FilterExact(s, []uint64{1, 2, 3, 99}, "fox")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 3}, got)
}
