package cloudstore

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

// FetchAll reads the four independent record collections and joins the
// attachment sub-resources to their owning library items client-side.
func (c *Client) FetchAll(ctx context.Context) (state.App, error) {
	var (
		users       []user.User
		library     []school.LibraryItem
		attachments []school.Attachment
		lessons     []school.Lesson
		agenda      []school.AgendaEntry
	)
	if err := c.get(ctx, "/users", nil, &users); err != nil {
		return state.App{}, errors.Wrap(err, "fetching users")
	}
	if err := c.get(ctx, "/library_items", nil, &library); err != nil {
		return state.App{}, errors.Wrap(err, "fetching library")
	}
	if err := c.get(ctx, "/attachments", nil, &attachments); err != nil {
		return state.App{}, errors.Wrap(err, "fetching attachments")
	}
	if err := c.get(ctx, "/lessons", nil, &lessons); err != nil {
		return state.App{}, errors.Wrap(err, "fetching lessons")
	}
	if err := c.get(ctx, "/agenda", nil, &agenda); err != nil {
		return state.App{}, errors.Wrap(err, "fetching agenda")
	}

	byItem := make(map[string][]school.Attachment, len(attachments))
	for _, a := range attachments {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}
	for i := range library {
		library[i].Attachments = byItem[library[i].ID]
	}

	return state.App{
		Users:    users,
		Library:  library,
		Lessons:  lessons,
		Agenda:   agenda,
		Language: core.Conf.GetString("defaultLanguage"),
	}, nil
}

// user.Directory

func (c *Client) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	q := make(url.Values)
	q.Set("email", core.CleanString(email, true /* lower */))
	var users []user.User
	if err := c.get(ctx, "/users", q, &users); err != nil {
		return user.User{}, errors.Wrap(err, "looking up user")
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (c *Client) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var created user.User
	if err := c.post(ctx, "/users", usr, &created); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return created, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, id, role string) (user.User, error) {
	var updated user.User
	body := map[string]string{"role": role}
	if err := c.patch(ctx, recordPath("users", id), body, &updated); err != nil {
		return user.User{}, errors.Wrap(err, "updating user role")
	}
	return updated, nil
}

// lessons / agenda / library writes

func (c *Client) UpsertLesson(ctx context.Context, l school.Lesson) (school.Lesson, error) {
	var saved school.Lesson
	if err := c.post(ctx, "/lessons", l, &saved); err != nil {
		return school.Lesson{}, errors.Wrap(err, "saving lesson")
	}
	return saved, nil
}

func (c *Client) DeleteLesson(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, recordPath("lessons", id)), "deleting lesson")
}

func (c *Client) UpsertAgendaEntry(ctx context.Context, e school.AgendaEntry) (school.AgendaEntry, error) {
	var saved school.AgendaEntry
	if err := c.post(ctx, "/agenda", e, &saved); err != nil {
		return school.AgendaEntry{}, errors.Wrap(err, "saving agenda entry")
	}
	return saved, nil
}

func (c *Client) DeleteAgendaEntry(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, recordPath("agenda", id)), "deleting agenda entry")
}

func (c *Client) UpsertLibraryItem(ctx context.Context, it school.LibraryItem) (school.LibraryItem, error) {
	var saved school.LibraryItem
	if err := c.post(ctx, "/library_items", it, &saved); err != nil {
		return school.LibraryItem{}, errors.Wrap(err, "saving library item")
	}
	return saved, nil
}

// chat.Repository

func (c *Client) RecentMessages(ctx context.Context, limit int) ([]chat.Message, error) {
	q := make(url.Values)
	q.Set("order", "created_at.asc")
	q.Set("last", strconv.Itoa(limit))
	var msgs []chat.Message
	if err := c.get(ctx, "/messages", q, &msgs); err != nil {
		return nil, errors.Wrap(err, "fetching messages")
	}
	return msgs, nil
}

func (c *Client) InsertMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	var created chat.Message
	if err := c.post(ctx, "/messages", m, &created); err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return created, nil
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, recordPath("messages", id)), "deleting message")
}

func (c *Client) ClearMessages(ctx context.Context) error {
	return errors.Wrap(c.delete(ctx, "/messages"), "clearing messages")
}

// assistant.LogRepository

func (c *Client) CreateLog(ctx context.Context, l school.AiLog) (school.AiLog, error) {
	var created school.AiLog
	if err := c.post(ctx, "/ai_logs", l, &created); err != nil {
		return school.AiLog{}, errors.Wrap(err, "creating ai log")
	}
	return created, nil
}

func (c *Client) UpdateLogStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return errors.Wrap(c.patch(ctx, recordPath("ai_logs", id), body, nil), "updating ai log")
}
