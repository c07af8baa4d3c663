package chat

import (
	"strings"
	"time"

	"github.com/trezcool/darasa/core/user"
)

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
	KindFile  = "file"
	KindAudio = "audio"
)

// AssistantAuthorID is the sentinel author id for assistant messages that are
// not proxied through a human identity.
const AssistantAuthorID = "assistant"

// ProxyPrefix is the private control prefix marking an assistant-authored
// message stored under a human author's id (a "proxied" message). For display
// purposes it overrides the author id.
const ProxyPrefix = "[AI_PROXY]"

type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// Message is one entry of the shared chat stream. ID uniqueness is the dedup
// key across the initial load and the live stream; CreatedAt is the ordering
// key.
type Message struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Content   string     `json:"content"`
	Kind      string     `json:"kind"`
	MediaURL  string     `json:"media_url,omitempty"`
	Resources []Resource `json:"resources,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Reactions []Reaction `json:"reactions,omitempty"`
	ReadBy    []string   `json:"read_by,omitempty"`
}

// Resource is a structured attachment descriptor carried by an assistant
// reply, parsed from its resource-attachment tag.
type Resource map[string]interface{}

// FromAssistant reports whether the message renders as assistant-authored:
// either the sentinel author id or the control prefix, the prefix winning for
// proxied messages.
func (m Message) FromAssistant() bool {
	return strings.HasPrefix(m.Content, ProxyPrefix) || m.AuthorID == AssistantAuthorID
}

// DisplayContent strips the control prefix for rendering.
func (m Message) DisplayContent() string {
	return strings.TrimSpace(strings.TrimPrefix(m.Content, ProxyPrefix))
}

// CanDelete is the deletion authorization rule enforced by collaborators, not
// by the stream merger: message owner or an elevated role.
func CanDelete(usr user.User, m Message) bool {
	return m.AuthorID == usr.ID || usr.IsElevated()
}

// GroupByAuthor splits messages into consecutive same-author visual blocks.
// Assistant-attributed messages never group with the human message that
// triggered them, even when proxied under the human's id.
func GroupByAuthor(msgs []Message) [][]Message {
	var groups [][]Message
	var lastKey string
	for _, m := range msgs {
		key := m.AuthorID
		if m.FromAssistant() {
			key = AssistantAuthorID
		}
		if len(groups) == 0 || key != lastKey {
			groups = append(groups, []Message{m})
		} else {
			groups[len(groups)-1] = append(groups[len(groups)-1], m)
		}
		lastKey = key
	}
	return groups
}
