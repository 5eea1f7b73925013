package user

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	m := NewManager()

	assert.Equal(t, 101, m.Register("alice", "short"))
	assert.Equal(t, 101, m.Register("alice", "this password is far too long"))
	assert.Equal(t, 101, m.Register("alice", "bad pass!"))
	assert.Equal(t, 103, m.Register("al", "password123"))
	assert.Equal(t, 103, m.Register("waytoolongusername", "password123"))
	assert.Equal(t, 103, m.Register("al_ice", "password123"))

	assert.Equal(t, CodeOK, m.Register("alice", "password123"))
	assert.Equal(t, 102, m.Register("alice", "password456"))
}

func TestLoginLogout(t *testing.T) {
	m := NewManager()
	require.Equal(t, CodeOK, m.Register("alice", "password123"))

	assert.Equal(t, 103, m.Login("alice", "nope"))
	assert.Equal(t, 101, m.Login("alice", "wrongpass123"))
	assert.Equal(t, 101, m.Login("nobody", "password123"))

	assert.Equal(t, CodeOK, m.Login("alice", "password123"))
	assert.True(t, m.IsLoggedIn("alice"))
	assert.Equal(t, 102, m.Login("alice", "password123"))

	assert.Equal(t, CodeOK, m.Logout("alice"))
	assert.False(t, m.IsLoggedIn("alice"))
	assert.Equal(t, 101, m.Logout("alice"))
	assert.Equal(t, 101, m.Logout("nobody"))
}

func TestUpdateCredentials(t *testing.T) {
	m := NewManager()
	require.Equal(t, CodeOK, m.Register("alice", "password123"))
	require.Equal(t, CodeOK, m.Login("alice", "password123"))

	assert.Equal(t, 105, m.UpdateCredentials("nobody", "password123", "newpass1234"))
	assert.Equal(t, 101, m.UpdateCredentials("alice", "password123", "short"))
	assert.Equal(t, 102, m.UpdateCredentials("alice", "wrongpass123", "newpass1234"))
	assert.Equal(t, 103, m.UpdateCredentials("alice", "password123", "password123"))

	assert.Equal(t, CodeOK, m.UpdateCredentials("alice", "password123", "newpass1234"))

	// password change drops the session
	assert.False(t, m.IsLoggedIn("alice"))
	assert.Equal(t, 101, m.Login("alice", "password123"))
	assert.Equal(t, CodeOK, m.Login("alice", "newpass1234"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	m := NewManager()
	require.Equal(t, CodeOK, m.Register("alice", "password123"))
	require.Equal(t, CodeOK, m.Register("bob", "hunter2hunter2"))
	require.Equal(t, CodeOK, m.Login("alice", "password123"))
	require.NoError(t, m.Save(path))

	loaded := NewManager()
	require.NoError(t, loaded.Load(path))

	// sessions do not survive a restart
	assert.False(t, loaded.IsLoggedIn("alice"))
	assert.Equal(t, CodeOK, loaded.Login("alice", "password123"))
	assert.Equal(t, CodeOK, loaded.Login("bob", "hunter2hunter2"))
	assert.Equal(t, 102, loaded.Register("alice", "password456"))
}

func TestLoadMissingFileIsFreshStart(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(filepath.Join(t.TempDir(), "users.json")))
	assert.Equal(t, CodeOK, m.Register("alice", "password123"))
}
