// Package localstore serializes the snapshot and the remembered session to
// two durable local slots. Pure and synchronous; no network.
package localstore

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

const (
	snapshotFile = "snapshot.json"
	sessionFile  = "session.json"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating local data dir")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) SaveSnapshot(app state.App) error {
	data, err := json.Marshal(app)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return errors.Wrap(s.write(snapshotFile, data), "persisting snapshot")
}

// LoadSnapshot reads the last persisted snapshot. An absent or corrupt slot
// loads as empty: the client starts from zero and resyncs.
func (s *Store) LoadSnapshot() (state.App, bool) {
	var app state.App
	data, err := ioutil.ReadFile(s.path(snapshotFile))
	if err != nil {
		return app, false
	}
	if err := json.Unmarshal(data, &app); err != nil {
		return state.App{}, false
	}
	return app, true
}

// sessionSlot pairs the remembered session with its signature so a tampered
// file is rejected on load.
type sessionSlot struct {
	Session user.Session `json:"session"`
	Token   string       `json:"token"`
}

func (s *Store) SaveSession(sess user.Session) error {
	token, err := user.MakeSessionToken(sess)
	if err != nil {
		return errors.Wrap(err, "signing session")
	}
	data, err := json.Marshal(sessionSlot{Session: sess, Token: token})
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(s.write(sessionFile, data), "persisting session")
}

func (s *Store) LoadSession() (user.Session, bool) {
	data, err := ioutil.ReadFile(s.path(sessionFile))
	if err != nil {
		return user.Session{}, false
	}
	var slot sessionSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		_ = s.ClearSession()
		return user.Session{}, false
	}
	if err := user.VerifySessionToken(slot.Token, slot.Session); err != nil {
		_ = s.ClearSession()
		return user.Session{}, false
	}
	return slot.Session, true
}

func (s *Store) ClearSession() error {
	err := os.Remove(s.path(sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) write(name string, data []byte) error {
	tmp := s.path(name + ".tmp")
	if err := ioutil.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(name))
}
