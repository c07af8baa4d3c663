package chat

import (
	"sort"
	"sync"
)

// Event kinds on the live message stream. Updates (reactions, read state) are
// not consumed here.
const (
	EventInsert = "insert"
	EventDelete = "delete"
)

type Event struct {
	Kind    string
	Message Message // set for inserts
	ID      string  // set for deletes
}

// Stream is the ordered, deduplicated in-memory merge of the initial bounded
// load and the live insert/delete events. The initial window is always
// installed before any live event is applied; events arriving earlier are
// buffered.
type Stream struct {
	mu      sync.Mutex
	mounted bool
	msgs    []Message
	pending []Event
}

func NewStream() *Stream {
	return &Stream{}
}

// Install sets the initial bounded window, sorted ascending by creation time,
// then drains any events buffered while the load was in flight.
func (s *Stream) Install(window []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = make([]Message, len(window))
	copy(s.msgs, window)
	sort.SliceStable(s.msgs, func(i, j int) bool {
		return s.msgs[i].CreatedAt.Before(s.msgs[j].CreatedAt)
	})
	s.mounted = true

	for _, ev := range s.pending {
		s.apply(ev)
	}
	s.pending = nil
}

// Apply merges one live event. Before the initial window is installed the
// event is buffered so it cannot land on an empty list and be lost.
func (s *Stream) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		s.pending = append(s.pending, ev)
		return
	}
	s.apply(ev)
}

func (s *Stream) apply(ev Event) {
	switch ev.Kind {
	case EventInsert:
		s.insert(ev.Message)
	case EventDelete:
		s.delete(ev.ID)
	}
}

// insert appends preserving ascending time order and discards ids already
// present (e.g. the echo of a message this client appended after its own
// synchronous send).
func (s *Stream) insert(m Message) {
	for _, old := range s.msgs {
		if old.ID == m.ID {
			return
		}
	}
	i := len(s.msgs)
	for i > 0 && s.msgs[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	s.msgs = append(s.msgs, Message{})
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = m
}

func (s *Stream) delete(id string) {
	next := s.msgs[:0]
	for _, old := range s.msgs {
		if old.ID != id {
			next = append(next, old)
		}
	}
	s.msgs = next
}

// Append adds a message the client itself just sent, so the later insert
// event for it deduplicates.
func (s *Stream) Append(m Message) {
	s.Apply(Event{Kind: EventInsert, Message: m})
}

func (s *Stream) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Messages returns a copy of the live list.
func (s *Stream) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Reset drops the live list and buffered events, e.g. on identity change.
func (s *Stream) Reset() {
	s.mu.Lock()
	s.mounted = false
	s.msgs = nil
	s.pending = nil
	s.mu.Unlock()
}
