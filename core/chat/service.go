package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var ErrDeleteForbidden = errors.New("only the message owner or staff may delete a message")

// Repository is the backend message collection.
type Repository interface {
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
	InsertMessage(ctx context.Context, m Message) (Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ClearMessages(ctx context.Context) error
}

// Service wires the backend message collection to the in-memory Stream:
// initial bounded load, sends, deletes and live event application.
type Service struct {
	repo   Repository
	stream *Stream
	window int
}

func NewService(repo Repository) *Service {
	window := core.Conf.GetInt("chatWindowSize")
	if window <= 0 {
		window = 50
	}
	return &Service{repo: repo, stream: NewStream(), window: window}
}

func (svc *Service) Stream() *Stream { return svc.stream }

// Mount loads the most recent bounded window and installs it as the live
// list. Live events received before Mount completes are buffered by the
// Stream and applied afterwards.
func (svc *Service) Mount(ctx context.Context) error {
	window, err := svc.repo.RecentMessages(ctx, svc.window)
	if err != nil {
		return errors.Wrap(err, "loading chat window")
	}
	svc.stream.Install(window)
	return nil
}

// HandleEvent merges one live insert/delete event.
func (svc *Service) HandleEvent(ev Event) {
	svc.stream.Apply(ev)
}

// Send writes a new message to the backend then appends it to the live list,
// so the echoed insert event deduplicates.
func (svc *Service) Send(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m, err := svc.repo.InsertMessage(ctx, m)
	if err != nil {
		return Message{}, errors.Wrap(err, "sending message")
	}
	svc.stream.Append(m)
	return m, nil
}

// Delete removes a message, enforcing the owner-or-elevated rule on behalf of
// the calling collaborator.
func (svc *Service) Delete(ctx context.Context, usr user.User, m Message) error {
	if !CanDelete(usr, m) {
		return ErrDeleteForbidden
	}
	if err := svc.repo.DeleteMessage(ctx, m.ID); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	svc.stream.Apply(Event{Kind: EventDelete, ID: m.ID})
	return nil
}

// Clear bulk-removes the whole stream; elevated roles only.
func (svc *Service) Clear(ctx context.Context, usr user.User) error {
	if !usr.IsElevated() {
		return ErrDeleteForbidden
	}
	if err := svc.repo.ClearMessages(ctx); err != nil {
		return errors.Wrap(err, "clearing messages")
	}
	svc.stream.Reset()
	svc.stream.Install(nil)
	return nil
}
