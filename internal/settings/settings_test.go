package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenAt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetDefaults(t *testing.T) {
	s := openTestStore(t)

	v, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 50, v.Volume)
	assert.False(t, v.Muted)
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(73, true))

	v, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 73, v.Volume)
	assert.True(t, v.Muted)
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(10, false))
	require.NoError(t, s.Save(90, true))

	v, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 90, v.Volume)
	assert.True(t, v.Muted)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := OpenAt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(33, true))
	require.NoError(t, s.Close())

	s2, err := OpenAt(path)
	require.NoError(t, err)
	defer s2.Close()

	v, err := s2.Get()
	require.NoError(t, err)
	assert.Equal(t, 33, v.Volume)
	assert.True(t, v.Muted)
}
