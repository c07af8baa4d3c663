package engine

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assistant"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/user"
)

// AttachChat wires the chat-send path through the engine so sends share the
// offline guard and the assistant hook.
func (e *Engine) AttachChat(chats *chat.Service, ai *assistant.Service) {
	e.chats = chats
	e.ai = ai
}

// SendMessage delivers a human message, then hands it to the assistant
// orchestrator when it carries the mention token. The orchestrator runs as an
// independent asynchronous step: the human's message is visible immediately
// and the assistant's reply arrives later as a second chat insert.
func (e *Engine) SendMessage(ctx context.Context, usr user.User, content, kind string) (chat.Message, error) {
	const op = "message.send"
	if err := e.guard(op); err != nil {
		return chat.Message{}, err
	}
	if e.chats == nil {
		return chat.Message{}, core.NewMutationError(op, errChatDetached)
	}

	// the assistant's bounded history covers the turns prior to this query
	history := e.chats.Stream().Messages()

	sent, err := e.chats.Send(ctx, chat.Message{AuthorID: usr.ID, Content: content, Kind: kind})
	if err != nil {
		return chat.Message{}, core.NewMutationError(op, err)
	}
	if e.ai != nil {
		e.ai.HandleMessage(usr, sent, history)
	}
	return sent, nil
}

func (e *Engine) DeleteMessage(ctx context.Context, usr user.User, m chat.Message) error {
	const op = "message.delete"
	if err := e.guard(op); err != nil {
		return err
	}
	if e.chats == nil {
		return core.NewMutationError(op, errChatDetached)
	}
	if err := e.chats.Delete(ctx, usr, m); err != nil {
		return core.NewMutationError(op, err)
	}
	return nil
}

func (e *Engine) ClearChat(ctx context.Context, usr user.User) error {
	const op = "message.clear"
	if err := e.guard(op); err != nil {
		return err
	}
	if e.chats == nil {
		return core.NewMutationError(op, errChatDetached)
	}
	if err := e.chats.Clear(ctx, usr); err != nil {
		return core.NewMutationError(op, err)
	}
	return nil
}
