package engine

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

type fakeBackend struct {
	app      state.App
	fetchErr error
	writeErr error
	fetches  int
}

func (b *fakeBackend) FetchAll(context.Context) (state.App, error) {
	b.fetches++
	return b.app, b.fetchErr
}

func (b *fakeBackend) UpdateUserRole(_ context.Context, id, role string) (user.User, error) {
	return user.User{ID: id, Role: role}, b.writeErr
}

func (b *fakeBackend) UpsertLesson(_ context.Context, l school.Lesson) (school.Lesson, error) {
	return l, b.writeErr
}

func (b *fakeBackend) DeleteLesson(context.Context, string) error { return b.writeErr }

func (b *fakeBackend) UpsertAgendaEntry(_ context.Context, e school.AgendaEntry) (school.AgendaEntry, error) {
	return e, b.writeErr
}

func (b *fakeBackend) DeleteAgendaEntry(context.Context, string) error { return b.writeErr }

func (b *fakeBackend) UpsertLibraryItem(_ context.Context, it school.LibraryItem) (school.LibraryItem, error) {
	return it, b.writeErr
}

type fakeLocals struct {
	saved []state.App
	err   error
}

func (l *fakeLocals) SaveSnapshot(app state.App) error {
	if l.err != nil {
		return l.err
	}
	l.saved = append(l.saved, app)
	return nil
}

type fakeSessions struct {
	session   user.Session
	ok        bool
	logouts   int
	refreshed []user.User
}

func (s *fakeSessions) Remembered() (user.Session, bool) { return s.session, s.ok }
func (s *fakeSessions) ForceLogout()                     { s.logouts++ }
func (s *fakeSessions) RefreshIdentity(usr user.User)    { s.refreshed = append(s.refreshed, usr) }

func newTestEngine(backend *fakeBackend, local *fakeLocals, sessions *fakeSessions, online bool) (*Engine, *state.Store) {
	store := state.NewStore()
	lg := core.NewStdLogger(log.New(io.Discard, "", 0))
	eng := New(store, backend, local, sessions, func() bool { return online }, lg)
	return eng, store
}

func Test_Engine_SyncFromCloud(t *testing.T) {
	fresh := state.App{
		Users:   []user.User{{ID: "u1", Role: user.RoleStudent}},
		Lessons: []school.Lesson{{ID: "l1", Title: "Fractions"}},
	}
	backend := &fakeBackend{app: fresh}
	local := &fakeLocals{}
	eng, store := newTestEngine(backend, local, &fakeSessions{}, true)

	require.NoError(t, eng.SyncFromCloud(context.Background()))
	assert.Equal(t, fresh, store.Get())
	if assert.Len(t, local.saved, 1) {
		assert.Equal(t, fresh, local.saved[0])
	}
	assert.Equal(t, StatusHealthy, eng.Status())

	// re-running against the same backend data is a no-op on the result
	require.NoError(t, eng.SyncFromCloud(context.Background()))
	assert.Equal(t, fresh, store.Get())
	assert.Equal(t, 2, backend.fetches)
}

func Test_Engine_SyncFromCloud_offlineSkips(t *testing.T) {
	backend := &fakeBackend{app: state.App{Lessons: []school.Lesson{{ID: "l1"}}}}
	eng, store := newTestEngine(backend, &fakeLocals{}, &fakeSessions{}, false)

	require.NoError(t, eng.SyncFromCloud(context.Background()))
	assert.Zero(t, backend.fetches)
	assert.Empty(t, store.Get().Lessons)
	assert.Equal(t, StatusOffline, eng.Status())
}

func Test_Engine_SyncFromCloud_classifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		fetchErr   error
		wantStatus Status
		isConfig   bool
	}{
		{"rejected api key", errors.New("backend rejected the API key (status 401)"), StatusConfigError, true},
		{"missing url", errors.New("backend URL is not configured"), StatusConfigError, true},
		{"transient", errors.New("connection reset by peer"), StatusSyncWarning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := state.App{Lessons: []school.Lesson{{ID: "keep"}}}
			backend := &fakeBackend{fetchErr: tt.fetchErr}
			eng, store := newTestEngine(backend, &fakeLocals{}, &fakeSessions{}, true)
			store.Replace(seed)

			err := eng.SyncFromCloud(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.isConfig, core.IsConfigError(err))
			assert.Equal(t, !tt.isConfig, core.IsSyncError(err))
			assert.Equal(t, tt.wantStatus, eng.Status())
			// the last good snapshot stays in place
			assert.Equal(t, seed, store.Get())
		})
	}
}

func Test_Engine_SyncFromCloud_recoveryClearsErrors(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("connection reset")}
	eng, _ := newTestEngine(backend, &fakeLocals{}, &fakeSessions{}, true)

	require.Error(t, eng.SyncFromCloud(context.Background()))
	assert.Equal(t, StatusSyncWarning, eng.Status())

	backend.fetchErr = nil
	require.NoError(t, eng.SyncFromCloud(context.Background()))
	assert.Equal(t, StatusHealthy, eng.Status())
	assert.NoError(t, eng.Warning())
}

func Test_Engine_SyncFromCloud_snapshotSaveIsBestEffort(t *testing.T) {
	backend := &fakeBackend{app: state.App{Lessons: []school.Lesson{{ID: "l1"}}}}
	local := &fakeLocals{err: errors.New("disk full")}
	eng, store := newTestEngine(backend, local, &fakeSessions{}, true)

	require.NoError(t, eng.SyncFromCloud(context.Background()))
	assert.Len(t, store.Get().Lessons, 1)
	assert.Equal(t, StatusHealthy, eng.Status())
}

func Test_Engine_ReconcileSession(t *testing.T) {
	t.Run("identity gone forces logout", func(t *testing.T) {
		sessions := &fakeSessions{session: user.Session{User: user.User{ID: "ghost", Role: user.RoleStudent}}, ok: true}
		eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, sessions, true)

		eng.ReconcileSession([]user.User{{ID: "other", Role: user.RoleStudent}})
		assert.Equal(t, 1, sessions.logouts)
		assert.Empty(t, sessions.refreshed)
	})

	t.Run("role drift refreshes identity", func(t *testing.T) {
		sessions := &fakeSessions{session: user.Session{User: user.User{ID: "u1", Role: user.RoleStudent}}, ok: true}
		eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, sessions, true)

		eng.ReconcileSession([]user.User{{ID: "u1", Role: user.RoleAdmin}})
		assert.Zero(t, sessions.logouts)
		if assert.Len(t, sessions.refreshed, 1) {
			assert.Equal(t, user.RoleAdmin, sessions.refreshed[0].Role)
		}
	})

	t.Run("unchanged identity is untouched", func(t *testing.T) {
		sessions := &fakeSessions{session: user.Session{User: user.User{ID: "u1", Role: user.RoleStudent}}, ok: true}
		eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, sessions, true)

		eng.ReconcileSession([]user.User{{ID: "u1", Role: user.RoleStudent}})
		assert.Zero(t, sessions.logouts)
		assert.Empty(t, sessions.refreshed)
	})

	t.Run("nothing remembered is a no-op", func(t *testing.T) {
		sessions := &fakeSessions{}
		eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, sessions, true)

		eng.ReconcileSession([]user.User{{ID: "u1", Role: user.RoleStudent}})
		assert.Zero(t, sessions.logouts)
	})
}

func Test_Engine_statusPrecedence(t *testing.T) {
	eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, true)

	eng.mu.Lock()
	eng.syncWarn = errors.New("stale")
	eng.mu.Unlock()
	assert.Equal(t, StatusSyncWarning, eng.Status())

	eng.mu.Lock()
	eng.configErr = &core.ConfigError{Err: errors.New("bad key")}
	eng.mu.Unlock()
	assert.Equal(t, StatusConfigError, eng.Status())

	// offline is a condition, not an error: it hides both error states while
	// local data is served
	eng.SetOnline(false)
	assert.Equal(t, StatusOffline, eng.Status())

	eng.SetOnline(true)
	assert.Equal(t, StatusConfigError, eng.Status())
}

func Test_Engine_mutationsOfflineFailFast(t *testing.T) {
	backend := &fakeBackend{}
	eng, _ := newTestEngine(backend, &fakeLocals{}, &fakeSessions{}, false)
	ctx := context.Background()

	_, err := eng.SaveLesson(ctx, school.Lesson{ID: "l1"})
	assert.True(t, core.IsOffline(err))
	assert.Error(t, eng.RemoveLesson(ctx, "l1"))
	_, err = eng.SaveAgendaEntry(ctx, school.AgendaEntry{ID: "e1"})
	assert.True(t, core.IsOffline(err))
	assert.Error(t, eng.RemoveAgendaEntry(ctx, "e1"))
	_, err = eng.SaveLibraryItem(ctx, school.LibraryItem{ID: "m1"})
	assert.True(t, core.IsOffline(err))
	_, err = eng.ChangeUserRole(ctx, "u1", user.RoleAdmin)
	assert.True(t, core.IsOffline(err))
}

func Test_Engine_mutationFailureLeavesSnapshotUntouched(t *testing.T) {
	seed := state.App{Lessons: []school.Lesson{{ID: "l1", Title: "before"}}}
	backend := &fakeBackend{writeErr: errors.New("insert failed")}
	eng, store := newTestEngine(backend, &fakeLocals{}, &fakeSessions{}, true)
	store.Replace(seed)

	_, err := eng.SaveLesson(context.Background(), school.Lesson{ID: "l1", Title: "after"})
	require.Error(t, err)
	var merr *core.MutationError
	assert.True(t, errors.As(err, &merr))
	assert.Equal(t, seed, store.Get())
}

func Test_Engine_mutationSuccessPatchesSnapshot(t *testing.T) {
	eng, store := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, true)
	ctx := context.Background()

	saved, err := eng.SaveLesson(ctx, school.Lesson{ID: "l1", Title: "Fractions"})
	require.NoError(t, err)
	assert.Equal(t, []school.Lesson{saved}, store.Get().Lessons)

	require.NoError(t, eng.RemoveLesson(ctx, "l1"))
	assert.Empty(t, store.Get().Lessons)

	entry, err := eng.SaveAgendaEntry(ctx, school.AgendaEntry{ID: "e1", Title: "Essay"})
	require.NoError(t, err)
	assert.Equal(t, []school.AgendaEntry{entry}, store.Get().Agenda)
}

func Test_Engine_ChangeUserRole(t *testing.T) {
	eng, store := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, true)
	store.Replace(state.App{Users: []user.User{{ID: "u1", Role: user.RoleStudent}}})

	updated, err := eng.ChangeUserRole(context.Background(), "u1", user.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, updated.Role)
	assert.Equal(t, user.RoleAdmin, store.Get().Users[0].Role)
}

func Test_Engine_ChangeUserRole_unknownRole(t *testing.T) {
	eng, store := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, true)
	seed := state.App{Users: []user.User{{ID: "u1"}}}
	store.Replace(seed)

	_, err := eng.ChangeUserRole(context.Background(), "u1", "SUPERINTENDENT")
	require.Error(t, err)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, seed, store.Get())
}
