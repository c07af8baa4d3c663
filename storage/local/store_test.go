package localstore

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := ioutil.TempDir("", "darasa-local")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	s, err := NewStore(dir)
	require.NoError(t, err)
	return s
}

func Test_Store_snapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// an absent slot loads as empty
	app, ok := s.LoadSnapshot()
	assert.False(t, ok)
	assert.Equal(t, state.App{}, app)

	want := state.App{
		Users:    []user.User{{ID: "u1", Name: "Asha", Email: "asha@school.test", Role: user.RoleStudent}},
		Lessons:  []school.Lesson{{ID: "l1", Title: "Fractions", Subject: "Math", Published: true}},
		Language: "en",
	}
	require.NoError(t, s.SaveSnapshot(want))

	got, ok := s.LoadSnapshot()
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func Test_Store_corruptSnapshotLoadsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, ioutil.WriteFile(filepath.Join(s.dir, snapshotFile), []byte("{nope"), 0o600))

	app, ok := s.LoadSnapshot()
	assert.False(t, ok)
	assert.Equal(t, state.App{}, app)
}

func Test_Store_sessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LoadSession()
	assert.False(t, ok)

	want := user.Session{User: user.User{ID: "u1", Role: user.RoleStudent}, Remember: true}
	require.NoError(t, s.SaveSession(want))

	got, ok := s.LoadSession()
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, s.ClearSession())
	_, ok = s.LoadSession()
	assert.False(t, ok)

	// clearing an already empty slot is fine
	assert.NoError(t, s.ClearSession())
}

func Test_Store_tamperedSessionRejected(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession(user.Session{User: user.User{ID: "u1", Role: user.RoleStudent}}))

	// promote the stored role without re-signing
	path := filepath.Join(s.dir, sessionFile)
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	var slot sessionSlot
	require.NoError(t, json.Unmarshal(data, &slot))
	slot.Session.User.Role = user.RoleAdmin
	data, err = json.Marshal(slot)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(path, data, 0o600))

	_, ok := s.LoadSession()
	assert.False(t, ok)

	// the bad slot is cleared, not retried forever
	_, err = ioutil.ReadFile(path)
	assert.Error(t, err)
}
