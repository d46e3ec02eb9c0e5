package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SaveLoadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")

	s := &Session{
		Server:   "http://localhost:8080",
		Token:    "tok",
		UserID:   "u1",
		Username: "alice",
		LoggedIn: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
	assert.True(t, loaded.Authenticated())
	assert.Equal(t, "u1", loaded.Requester().ID)
	assert.Equal(t, "alice", loaded.Requester().Username)

	require.NoError(t, RemoveSession(path))
	require.NoError(t, RemoveSession(path), "removing twice is fine")

	loaded, err = LoadSession(path)
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated())
	assert.Nil(t, loaded.Requester())
}

func TestLoadSession_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unclosed"), 0o600))

	_, err := LoadSession(path)
	assert.Error(t, err)
}

func TestNilSession(t *testing.T) {
	var s *Session
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.Requester())
}
