// Package state holds the single authoritative application snapshot.
// Replacement is one atomic assignment under lock: readers never observe a
// half-written snapshot. Patch helpers build fresh slices instead of mutating
// shared ones in place.
package state

import (
	"sync"

	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

// App is the full in-memory copy of shared academic state held by the client.
type App struct {
	Users    []user.User          `json:"users"`
	Library  []school.LibraryItem `json:"library"`
	Lessons  []school.Lesson      `json:"lessons"`
	Agenda   []school.AgendaEntry `json:"agenda"`
	Language string               `json:"language"`
}

type Store struct {
	mu  sync.RWMutex
	app App
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get() App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// Replace installs a fresh snapshot wholesale.
func (s *Store) Replace(app App) {
	s.mu.Lock()
	s.app = app
	s.mu.Unlock()
}

func (s *Store) Users() []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app.Users
}

// PatchUser upserts a single identity by ID.
func (s *Store) PatchUser(usr user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app.Users = upsertUser(s.app.Users, usr)
}

func (s *Store) UpsertLesson(l school.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]school.Lesson, 0, len(s.app.Lessons)+1)
	replaced := false
	for _, old := range s.app.Lessons {
		if old.ID == l.ID {
			next = append(next, l)
			replaced = true
		} else {
			next = append(next, old)
		}
	}
	if !replaced {
		next = append(next, l)
	}
	s.app.Lessons = next
}

func (s *Store) DeleteLesson(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]school.Lesson, 0, len(s.app.Lessons))
	for _, old := range s.app.Lessons {
		if old.ID != id {
			next = append(next, old)
		}
	}
	s.app.Lessons = next
}

func (s *Store) UpsertAgendaEntry(e school.AgendaEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]school.AgendaEntry, 0, len(s.app.Agenda)+1)
	replaced := false
	for _, old := range s.app.Agenda {
		if old.ID == e.ID {
			next = append(next, e)
			replaced = true
		} else {
			next = append(next, old)
		}
	}
	if !replaced {
		next = append(next, e)
	}
	s.app.Agenda = next
}

func (s *Store) DeleteAgendaEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]school.AgendaEntry, 0, len(s.app.Agenda))
	for _, old := range s.app.Agenda {
		if old.ID != id {
			next = append(next, old)
		}
	}
	s.app.Agenda = next
}

func (s *Store) UpsertLibraryItem(it school.LibraryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]school.LibraryItem, 0, len(s.app.Library)+1)
	replaced := false
	for _, old := range s.app.Library {
		if old.ID == it.ID {
			next = append(next, it)
			replaced = true
		} else {
			next = append(next, old)
		}
	}
	if !replaced {
		next = append(next, it)
	}
	s.app.Library = next
}

func (s *Store) SetLanguage(lang string) {
	s.mu.Lock()
	s.app.Language = lang
	s.mu.Unlock()
}

func upsertUser(users []user.User, usr user.User) []user.User {
	next := make([]user.User, 0, len(users)+1)
	replaced := false
	for _, old := range users {
		if old.ID == usr.ID {
			next = append(next, usr)
			replaced = true
		} else {
			next = append(next, old)
		}
	}
	if !replaced {
		next = append(next, usr)
	}
	return next
}
