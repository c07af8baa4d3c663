package user

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound            = errors.New("user not found")
	ErrEmailExists         = errors.New("a user with this email already exists")
	ErrOfflineRegistration = errors.New("registration requires a network connection")
)

type (
	// Directory is the backend identity collection.
	Directory interface {
		GetUserByEmail(ctx context.Context, email string) (User, error)
		CreateUser(ctx context.Context, usr User) (User, error)
	}

	// Roster reads and patches the identities slice of the local snapshot.
	Roster interface {
		Users() []User
		PatchUser(usr User)
	}

	// SessionKeeper persists the remembered-session slot.
	SessionKeeper interface {
		SaveSession(s Session) error
		LoadSession() (Session, bool)
		ClearSession() error
	}

	// Service owns the current identity and the remembered session: login,
	// registration and logout, online or off.
	Service struct {
		dir      Directory
		roster   Roster
		sessions SessionKeeper
		offline  func() bool

		mu      sync.RWMutex
		current *User
	}
)

func NewService(dir Directory, roster Roster, sessions SessionKeeper, offline func() bool) *Service {
	return &Service{dir: dir, roster: roster, sessions: sessions, offline: offline}
}

// Login resolves an email to an identity and makes it current. Offline, the
// lookup runs against the last-synced local roster; online it goes to the
// backend. Matching is case-insensitive either way.
func (svc *Service) Login(ctx context.Context, email string, remember bool) (User, error) {
	email = core.CleanString(email, true /* lower */)

	var usr User
	if svc.offline() {
		found := false
		for _, u := range svc.roster.Users() {
			if core.CleanString(u.Email, true) == email {
				usr, found = u, true
				break
			}
		}
		if !found {
			return User{}, ErrNotFound
		}
	} else {
		var err error
		if usr, err = svc.dir.GetUserByEmail(ctx, email); err != nil {
			return User{}, err
		}
	}

	svc.setCurrent(usr)
	if remember {
		if err := svc.sessions.SaveSession(Session{User: usr, Remember: true}); err != nil {
			return usr, err
		}
	}
	return usr, nil
}

// Register creates a new identity on the backend, patches it into the local
// snapshot and remembers it. Disallowed while offline: a registration cannot
// be replayed later.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if svc.offline() {
		return User{}, ErrOfflineRegistration
	}
	if err := nu.Validate(); err != nil {
		return User{}, err
	}

	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      roleForSecret(nu.Secret),
		Number:    newNumber(),
		CreatedAt: time.Now().UTC(),
	}
	usr, err := svc.dir.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	svc.roster.PatchUser(usr)
	svc.setCurrent(usr)
	if err := svc.sessions.SaveSession(Session{User: usr, Remember: nu.Remember}); err != nil {
		return usr, err
	}
	return usr, nil
}

// Logout clears the remembered session and the current identity unconditionally.
func (svc *Service) Logout() {
	_ = svc.sessions.ClearSession()
	svc.mu.Lock()
	svc.current = nil
	svc.mu.Unlock()
}

// ForceLogout is Logout under its reconciliation name: invoked when the
// remembered identity no longer exists on the backend.
func (svc *Service) ForceLogout() { svc.Logout() }

// RefreshIdentity replaces the held identity with a freshly fetched copy and
// updates the remembered session to match.
func (svc *Service) RefreshIdentity(usr User) {
	svc.setCurrent(usr)
	if s, ok := svc.sessions.LoadSession(); ok {
		s.User = usr
		_ = svc.sessions.SaveSession(s)
	}
}

func (svc *Service) Current() (User, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.current == nil {
		return User{}, false
	}
	return *svc.current, true
}

// Remembered returns the persisted session slot, if any.
func (svc *Service) Remembered() (Session, bool) {
	return svc.sessions.LoadSession()
}

// Restore makes a previously remembered identity current, e.g. at startup
// before the first sync.
func (svc *Service) Restore() (User, bool) {
	s, ok := svc.sessions.LoadSession()
	if !ok {
		return User{}, false
	}
	svc.setCurrent(s.User)
	return s.User, true
}

func (svc *Service) setCurrent(usr User) {
	svc.mu.Lock()
	svc.current = &usr
	svc.mu.Unlock()
}

// roleForSecret derives the registration role from the shared staff secret:
// elevated iff it matches the configured hash, lowest role otherwise.
func roleForSecret(secret string) string {
	hash := core.Conf.GetString("adminSecretHash")
	if secret == "" || hash == "" {
		return RoleStudent
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil {
		return RoleAdmin
	}
	return RoleStudent
}

// newNumber generates the human-readable account number.
func newNumber() string {
	return fmt.Sprintf("DRS-%d-%04d", time.Now().Year(), rand.Intn(10000))
}
