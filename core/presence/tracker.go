// Package presence maintains the set of currently-connected identities from
// full-state broadcasts on the shared realtime channel.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type State int

const (
	Unbound State = iota
	Joining
	Subscribed
)

func (s State) String() string {
	switch s {
	case Joining:
		return "JOINING"
	case Subscribed:
		return "SUBSCRIBED"
	default:
		return "UNBOUND"
	}
}

// Heartbeat is the liveness record published under the identity's own key, so
// duplicate tabs for one identity collapse to a single presence entry.
type Heartbeat struct {
	IdentityID string    `json:"identity_id"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Channel is the realtime transport the tracker drives.
type Channel interface {
	Join(ctx context.Context, key string) error
	Track(ctx context.Context, hb Heartbeat) error
	Leave() error
}

// Tracker runs the per-identity session state machine
// Unbound -> Joining -> Subscribed -> Unbound. Must be torn down whenever
// identity or offline status changes, or a stale subscription leaks.
type Tracker struct {
	ch Channel

	mu      sync.RWMutex
	state   State
	gen     int
	present map[string]struct{}
}

func NewTracker(ch Channel) *Tracker {
	return &Tracker{ch: ch, present: make(map[string]struct{})}
}

// Bind joins the shared channel keyed by the identity id and publishes the
// first heartbeat. The subscription generation is stamped internally; callers
// never see or carry it, so broadcast delivery cannot race the bind.
func (t *Tracker) Bind(ctx context.Context, identityID string) error {
	t.mu.Lock()
	if t.state != Unbound {
		t.mu.Unlock()
		return errors.Errorf("presence: bind from state %s", t.state)
	}
	t.state = Joining
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	if err := t.ch.Join(ctx, identityID); err != nil {
		t.reset(gen)
		return errors.Wrap(err, "joining presence channel")
	}
	hb := Heartbeat{IdentityID: identityID, JoinedAt: time.Now().UTC()}
	if err := t.ch.Track(ctx, hb); err != nil {
		_ = t.ch.Leave()
		t.reset(gen)
		return errors.Wrap(err, "publishing heartbeat")
	}

	t.mu.Lock()
	if t.gen == gen {
		t.state = Subscribed
	}
	t.mu.Unlock()
	return nil
}

// ApplySync replaces the presence set with the keys of a full-state
// broadcast, checked against the current subscription under the tracker's
// own mutex. Full replaces are idempotent and self-heal transient delivery
// gaps; broadcasts arriving mid-bind or after teardown are dropped.
func (t *Tracker) ApplySync(keys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Subscribed {
		return
	}
	next := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		next[k] = struct{}{}
	}
	t.present = next
}

// Teardown unsubscribes and stops heartbeats, returning to Unbound.
func (t *Tracker) Teardown() {
	t.mu.Lock()
	if t.state == Unbound {
		t.mu.Unlock()
		return
	}
	t.gen++
	t.state = Unbound
	t.present = make(map[string]struct{})
	t.mu.Unlock()
	_ = t.ch.Leave()
}

func (t *Tracker) reset(gen int) {
	t.mu.Lock()
	if t.gen == gen {
		t.state = Unbound
	}
	t.mu.Unlock()
}

func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Present returns the sorted set of identity ids believed connected.
func (t *Tracker) Present() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.present))
	for k := range t.present {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) Contains(identityID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.present[identityID]
	return ok
}
