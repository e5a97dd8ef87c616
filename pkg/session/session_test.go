package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	keyring.MockInit()
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestLoad_Empty(t *testing.T) {
	st := newTestStore(t)
	s, err := Load(st)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	_, err = s.RequireToken()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSession_SaveLoad(t *testing.T) {
	st := newTestStore(t)
	s := &Session{Token: "abc", GradeID: "7", LastSkill: "12"}
	require.NoError(t, s.Save(st))

	got, err := Load(st)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, "7", got.GradeID)
	assert.Equal(t, "12", got.LastSkill)
	assert.False(t, got.UpdatedAt.IsZero())

	b, err := os.ReadFile(filepath.Join(st.Dir(), sessionFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "abc")

	_, err = os.Stat(filepath.Join(st.Dir(), tokenFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSession_FileFallback(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, (&Session{Token: "file-token"}).Save(st))

	info, err := os.Stat(filepath.Join(st.Dir(), tokenFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load(st)
	require.NoError(t, err)
	assert.Equal(t, "file-token", got.Token)
}

func TestSession_MigratesFileToken(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), tokenFileName), []byte("legacy\n"), 0600))

	got, err := Load(st)
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.Token)

	v, err := keyring.Get(keyringService, keyringUser)
	require.NoError(t, err)
	assert.Equal(t, "legacy", v)

	_, err = os.Stat(filepath.Join(st.Dir(), tokenFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestClear(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, (&Session{Token: "abc", LastSkill: "3"}).Save(st))
	require.NoError(t, Clear(st))

	got, err := Load(st)
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
	assert.Empty(t, got.LastSkill)

	// clearing twice is fine
	assert.NoError(t, Clear(st))
}
