package engine

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/user"
)

type fakeChatRepo struct {
	msgs    []chat.Message
	cleared int
	err     error
}

func (r *fakeChatRepo) RecentMessages(_ context.Context, limit int) ([]chat.Message, error) {
	if limit < len(r.msgs) {
		return r.msgs[len(r.msgs)-limit:], r.err
	}
	return r.msgs, r.err
}

func (r *fakeChatRepo) InsertMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	if r.err != nil {
		return m, r.err
	}
	r.msgs = append(r.msgs, m)
	return m, nil
}

func (r *fakeChatRepo) DeleteMessage(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	next := r.msgs[:0]
	for _, m := range r.msgs {
		if m.ID != id {
			next = append(next, m)
		}
	}
	r.msgs = next
	return nil
}

func (r *fakeChatRepo) ClearMessages(context.Context) error {
	r.cleared++
	r.msgs = nil
	return r.err
}

func newChatEngine(t *testing.T, online bool) (*Engine, *chat.Service, *fakeChatRepo) {
	t.Helper()
	repo := &fakeChatRepo{}
	chats := chat.NewService(repo)
	require.NoError(t, chats.Mount(context.Background()))

	eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, online)
	eng.AttachChat(chats, nil)
	return eng, chats, repo
}

func Test_Engine_SendMessage(t *testing.T) {
	eng, chats, repo := newChatEngine(t, true)
	usr := user.User{ID: "u1", Role: user.RoleStudent}

	sent, err := eng.SendMessage(context.Background(), usr, "morning all", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", sent.AuthorID)
	assert.Equal(t, chat.KindText, sent.Kind)
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.CreatedAt.IsZero())

	assert.Len(t, repo.msgs, 1)
	assert.Equal(t, 1, chats.Stream().Len())
}

func Test_Engine_SendMessage_offline(t *testing.T) {
	eng, _, repo := newChatEngine(t, false)

	_, err := eng.SendMessage(context.Background(), user.User{ID: "u1"}, "hello?", "")
	assert.True(t, core.IsOffline(err))
	assert.Empty(t, repo.msgs)
}

func Test_Engine_DeleteMessage(t *testing.T) {
	eng, chats, repo := newChatEngine(t, true)
	owner := user.User{ID: "u1", Role: user.RoleStudent}
	other := user.User{ID: "u2", Role: user.RoleStudent}
	admin := user.User{ID: "u3", Role: user.RoleAdmin}

	sent, err := eng.SendMessage(context.Background(), owner, "oops", "")
	require.NoError(t, err)

	// a plain student cannot delete someone else's message
	err = eng.DeleteMessage(context.Background(), other, sent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrDeleteForbidden))
	assert.Len(t, repo.msgs, 1)

	// staff can
	require.NoError(t, eng.DeleteMessage(context.Background(), admin, sent))
	assert.Empty(t, repo.msgs)
	assert.Zero(t, chats.Stream().Len())
}

func Test_Engine_ClearChat(t *testing.T) {
	eng, chats, repo := newChatEngine(t, true)
	admin := user.User{ID: "u3", Role: user.RoleAdmin}
	student := user.User{ID: "u1", Role: user.RoleStudent}

	_, err := eng.SendMessage(context.Background(), student, "one", "")
	require.NoError(t, err)
	_, err = eng.SendMessage(context.Background(), student, "two", "")
	require.NoError(t, err)

	err = eng.ClearChat(context.Background(), student)
	require.Error(t, err)
	assert.Zero(t, repo.cleared)

	require.NoError(t, eng.ClearChat(context.Background(), admin))
	assert.Equal(t, 1, repo.cleared)
	assert.Zero(t, chats.Stream().Len())
	assert.True(t, chats.Stream().Mounted())
}

func Test_Engine_SendMessage_detachedChat(t *testing.T) {
	eng, _ := newTestEngine(&fakeBackend{}, &fakeLocals{}, &fakeSessions{}, true)
	_, err := eng.SendMessage(context.Background(), user.User{ID: "u1"}, "hi", "")
	assert.Error(t, err)
}
