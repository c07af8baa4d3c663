package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/state"
)

var NowFunc = time.Now // mockable

type (
	// Completer is the one-shot, non-streaming completion endpoint.
	Completer interface {
		Complete(ctx context.Context, system string, history []Turn, query string) (string, error)
	}

	// SnapshotFetcher re-fetches a fresh full snapshot so the response is
	// grounded in current data, not the possibly-stale cached one.
	SnapshotFetcher interface {
		FetchAll(ctx context.Context) (state.App, error)
	}

	// LogRepository records requests the assistant could not satisfy.
	LogRepository interface {
		CreateLog(ctx context.Context, l school.AiLog) (school.AiLog, error)
		UpdateLogStatus(ctx context.Context, id, status string) error
	}

	// Publisher emits the synthetic reply into the chat stream.
	Publisher interface {
		Send(ctx context.Context, m chat.Message) (chat.Message, error)
	}

	Service struct {
		completer    Completer
		cloud        SnapshotFetcher
		logs         LogRepository
		publisher    Publisher
		log          core.Logger
		historyLimit int
	}
)

func NewService(completer Completer, cloud SnapshotFetcher, logs LogRepository, publisher Publisher, log core.Logger) *Service {
	limit := core.Conf.GetInt("chatHistoryLimit")
	if limit <= 0 {
		limit = 15
	}
	return &Service{
		completer:    completer,
		cloud:        cloud,
		logs:         logs,
		publisher:    publisher,
		log:          log,
		historyLimit: limit,
	}
}

// HandleMessage inspects an outgoing human message and, when it mentions the
// assistant, responds asynchronously. The human's message is already sent and
// visible; the reply arrives later as an independent chat insert.
func (svc *Service) HandleMessage(requester user.User, m chat.Message, history []chat.Message) {
	if m.FromAssistant() || !Mentioned(m.Content) {
		return
	}
	go func() {
		ctx := context.Background()
		if _, err := svc.Respond(ctx, requester, m.DisplayContent(), history); err != nil {
			svc.log.Error("assistant response failed", err, requester)
		}
	}()
}

// Respond runs the whole pipeline: fresh snapshot, context blocks, bounded
// history, one completion, tag protocol, then exactly one proxied chat
// message authored as the requesting identity. Transport failures degrade to
// a fixed apology; they are never surfaced raw in the chat.
func (svc *Service) Respond(ctx context.Context, requester user.User, query string, history []chat.Message) (chat.Message, error) {
	reply := svc.converse(ctx, requester, query, history)

	msg := chat.Message{
		ID:        uuid.New().String(),
		AuthorID:  requester.ID,
		Content:   chat.ProxyPrefix + " " + reply.Text,
		Kind:      chat.KindText,
		Resources: reply.Resources,
		CreatedAt: NowFunc().UTC(),
	}
	if reply.MediaURL != "" {
		msg.Kind = chat.KindImage
		msg.MediaURL = reply.MediaURL
	}
	return svc.publisher.Send(ctx, msg)
}

func (svc *Service) converse(ctx context.Context, requester user.User, query string, history []chat.Message) Reply {
	app, err := svc.cloud.FetchAll(ctx)
	if err != nil {
		svc.log.Warn("assistant grounding fetch failed", err)
		return Reply{Text: TransportApology}
	}

	system := BuildSystemPrompt(app, NowFunc().UTC())
	turns := BuildHistory(history, svc.historyLimit)

	raw, err := svc.completer.Complete(ctx, system, turns, query)
	if err != nil {
		svc.log.Warn("assistant completion failed", err)
		return Reply{Text: TransportApology}
	}

	reply := ParseReply(raw)
	if reply.Missing {
		if err := svc.recordMiss(ctx, requester, query); err != nil {
			svc.log.Error("recording assistant miss", err, requester)
		}
		return Reply{Text: MissingApology}
	}
	return reply
}

func (svc *Service) recordMiss(ctx context.Context, requester user.User, query string) error {
	l := school.AiLog{
		ID:        uuid.New().String(),
		UserID:    requester.ID,
		Query:     query,
		Status:    school.LogUnresolved,
		CreatedAt: NowFunc().UTC(),
	}
	_, err := svc.logs.CreateLog(ctx, l)
	return errors.Wrap(err, "creating ai log")
}

// ResolveLog marks a recorded miss as handled by staff.
func (svc *Service) ResolveLog(ctx context.Context, id string) error {
	return errors.Wrap(svc.logs.UpdateLogStatus(ctx, id, school.LogResolved), "resolving ai log")
}
