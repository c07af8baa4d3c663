// Package engine keeps the client-held snapshot of shared state correct:
// full-state sync from the cloud backend, session reconciliation, failure
// classification and the fixed mutation entry points.
package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assistant"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

// Status is the externally observable top-level state the engine can put the
// collaborator UI into.
type Status int

const (
	StatusHealthy Status = iota
	StatusSyncWarning
	StatusOffline
	StatusConfigError
)

func (s Status) String() string {
	switch s {
	case StatusSyncWarning:
		return "SYNC_WARNING"
	case StatusOffline:
		return "OFFLINE"
	case StatusConfigError:
		return "CONFIG_ERROR"
	default:
		return "HEALTHY"
	}
}

type (
	// Backend is the cloud data store surface the engine drives: the
	// full-state fetch plus the fixed set of single-record writes behind the
	// mutation entry points.
	Backend interface {
		FetchAll(ctx context.Context) (state.App, error)
		UpdateUserRole(ctx context.Context, id, role string) (user.User, error)
		UpsertLesson(ctx context.Context, l school.Lesson) (school.Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
		UpsertAgendaEntry(ctx context.Context, e school.AgendaEntry) (school.AgendaEntry, error)
		DeleteAgendaEntry(ctx context.Context, id string) error
		UpsertLibraryItem(ctx context.Context, it school.LibraryItem) (school.LibraryItem, error)
	}

	// Locals persists the last good snapshot.
	Locals interface {
		SaveSnapshot(app state.App) error
	}

	// Sessions is the session-manager surface the reconciliation step needs.
	Sessions interface {
		Remembered() (user.Session, bool)
		ForceLogout()
		RefreshIdentity(usr user.User)
	}

	// Engine is safely re-entrant: it runs at startup, on every online
	// transition and on manual refresh.
	Engine struct {
		store    *state.Store
		backend  Backend
		local    Locals
		sessions Sessions
		online   func() bool
		log      core.Logger

		chats *chat.Service
		ai    *assistant.Service

		mu        sync.RWMutex
		offline   bool
		syncWarn  error
		configErr error
	}
)

var errChatDetached = errors.New("engine: chat service not attached")

func New(store *state.Store, backend Backend, local Locals, sessions Sessions, online func() bool, log core.Logger) *Engine {
	return &Engine{
		store:    store,
		backend:  backend,
		local:    local,
		sessions: sessions,
		online:   online,
		log:      log,
	}
}

// SyncFromCloud replaces the snapshot wholesale with a fresh full-state
// fetch, persists it and reconciles the remembered session against the
// just-fetched identity list. Offline, the network call is skipped and only
// the offline flag flips; on failure the last good snapshot stays in place
// and the error is classified into the configuration or transient bucket.
func (e *Engine) SyncFromCloud(ctx context.Context) error {
	if !e.online() {
		e.setOffline(true)
		return nil
	}
	e.setOffline(false)

	app, err := e.backend.FetchAll(ctx)
	if err != nil {
		classified := core.ClassifySyncError(err)
		e.mu.Lock()
		if core.IsConfigError(classified) {
			e.configErr = classified
		} else {
			e.syncWarn = classified
		}
		e.mu.Unlock()
		e.log.Warn("full-state sync failed", classified)
		return classified
	}

	e.store.Replace(app)
	if err := e.local.SaveSnapshot(app); err != nil {
		// local persistence is best-effort; the in-memory snapshot is already fresh
		e.log.Warn("persisting snapshot failed", err)
	}

	e.ReconcileSession(app.Users)

	e.mu.Lock()
	e.syncWarn = nil
	e.configErr = nil
	e.mu.Unlock()
	return nil
}

// ReconcileSession resolves the two sources of truth — the fresh identity
// list and the locally remembered session — after every sync. It always reads
// the just-fetched list, never a cached one, so a user is never logged out on
// stale data.
func (e *Engine) ReconcileSession(fresh []user.User) {
	s, ok := e.sessions.Remembered()
	if !ok {
		return
	}
	for _, u := range fresh {
		if u.ID == s.User.ID {
			if u.Role != s.User.Role {
				e.log.Info("remembered role drifted; refreshing identity",
					map[string]interface{}{"user": u.ID, "was": s.User.Role, "now": u.Role})
				e.sessions.RefreshIdentity(u)
			}
			return
		}
	}
	e.log.Info("remembered identity disappeared from roster; forcing logout",
		map[string]interface{}{"user": s.User.ID})
	e.sessions.ForceLogout()
}

// SetOnline records a connectivity transition. Callers run SyncFromCloud
// after flipping back online.
func (e *Engine) SetOnline(online bool) {
	e.setOffline(!online)
}

func (e *Engine) setOffline(offline bool) {
	e.mu.Lock()
	e.offline = offline
	e.mu.Unlock()
}

func (e *Engine) Offline() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.offline
}

// Status reports the one top-level UI state. Being offline is a condition,
// not an error: it suppresses both the blocking configuration error and the
// stale-data warning while the client serves last-known-good local data.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.offline:
		return StatusOffline
	case e.configErr != nil:
		return StatusConfigError
	case e.syncWarn != nil:
		return StatusSyncWarning
	default:
		return StatusHealthy
	}
}

// Err returns the blocking configuration error, if any.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.configErr
}

// Warning returns the non-blocking sync warning, if any.
func (e *Engine) Warning() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.syncWarn
}

// guard rejects a mutation attempted while offline: writes are never queued
// for later replay.
func (e *Engine) guard(op string) error {
	if !e.online() {
		return core.NewMutationError(op, core.ErrOffline)
	}
	return nil
}
