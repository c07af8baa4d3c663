// Package realtimesvc is the websocket client for the shared realtime
// channel: presence join/heartbeat/sync plus chat row insert/delete events.
package realtimesvc

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/presence"
)

// frame events on the wire.
const (
	eventJoin   = "join"
	eventLeave  = "leave"
	eventTrack  = "track"
	eventSync   = "sync"
	eventInsert = "insert"
	eventDelete = "delete"
)

type frame struct {
	Event   string              `json:"event"`
	Topic   string              `json:"topic,omitempty"`
	Key     string              `json:"key,omitempty"`
	Payload *presence.Heartbeat `json:"payload,omitempty"`
	Keys    []string            `json:"keys,omitempty"`
	Message *chat.Message       `json:"message,omitempty"`
	ID      string              `json:"id,omitempty"`
}

// Handlers receive decoded channel traffic. They are invoked from the read
// loop goroutine.
type Handlers struct {
	OnPresenceSync func(keys []string)
	OnChatEvent    func(ev chat.Event)
	OnClosed       func(err error)
}

// Channel is one joined websocket session. It satisfies presence.Channel.
type Channel struct {
	url      string
	topic    string
	handlers Handlers
	log      core.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

var _ presence.Channel = (*Channel)(nil)

func NewChannel(handlers Handlers, log core.Logger) *Channel {
	return &Channel{
		url:      core.Conf.GetString("realtimeURL"),
		topic:    core.Conf.GetString("presenceChannel"),
		handlers: handlers,
		log:      log,
	}
}

// Join dials the realtime endpoint and announces this identity's key on the
// shared topic, then starts the read loop.
func (c *Channel) Join(ctx context.Context, key string) error {
	if c.url == "" {
		return errors.New("realtime URL is not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return errors.New("realtime: already joined")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "dialing realtime endpoint")
	}
	if err := conn.WriteJSON(frame{Event: eventJoin, Topic: c.topic, Key: key}); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "joining channel")
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)
	return nil
}

// Track publishes a liveness heartbeat under the identity's key; a later
// heartbeat from the same identity overwrites the previous one server-side.
func (c *Channel) Track(_ context.Context, hb presence.Heartbeat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("realtime: not joined")
	}
	hbCopy := hb
	err := c.conn.WriteJSON(frame{Event: eventTrack, Topic: c.topic, Key: hb.IdentityID, Payload: &hbCopy})
	return errors.Wrap(err, "publishing heartbeat")
}

// Leave announces departure and closes the connection. Safe to call when not
// joined. The done channel is closed before the connection so the read loop
// sees the resulting read error as deliberate, not as a lost connection.
func (c *Channel) Leave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	close(c.done)
	_ = c.conn.WriteJSON(frame{Event: eventLeave, Topic: c.topic})
	err := c.conn.Close()
	c.conn = nil
	return errors.Wrap(err, "leaving channel")
}

func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-done:
				// deliberate Leave; not an error
			default:
				c.log.Warn("realtime connection lost", err)
				if c.handlers.OnClosed != nil {
					c.handlers.OnClosed(err)
				}
			}
			return
		}

		switch f.Event {
		case eventSync:
			if c.handlers.OnPresenceSync != nil {
				c.handlers.OnPresenceSync(f.Keys)
			}
		case eventInsert:
			if f.Message != nil && c.handlers.OnChatEvent != nil {
				c.handlers.OnChatEvent(chat.Event{Kind: chat.EventInsert, Message: *f.Message})
			}
		case eventDelete:
			if c.handlers.OnChatEvent != nil {
				c.handlers.OnChatEvent(chat.Event{Kind: chat.EventDelete, ID: f.ID})
			}
		default:
			c.log.Debug("realtime: ignoring frame", map[string]interface{}{"event": f.Event})
		}
	}
}
