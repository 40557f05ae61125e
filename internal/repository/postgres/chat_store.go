package postgres

import (
	"context"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ChatStoreImpl is the Postgres-backed chat store. Every mutating
// operation runs in a transaction that first takes a row lock on the
// session, so writes against one session apply one at a time in a total
// order.
type ChatStoreImpl struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewChatStore(uowFactory unitofwork.RepositoryFactory) contract.ChatStore {
	return &ChatStoreImpl{
		uowFactory: uowFactory,
	}
}

func (s *ChatStoreImpl) CreateSession(ctx context.Context, title string) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sess := &entity.ChatSession{Id: uuid.New(), Title: title, CreatedAt: time.Now()}
	if err := uow.ChatSessionRepository().Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *ChatStoreImpl) GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, contract.ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: id},
		specification.WithMessageGraph{},
		specification.OrderBy{Field: "position"},
	)
	if err != nil {
		return nil, err
	}

	sess.Messages = messages
	return sess, nil
}

func (s *ChatStoreImpl) ListSessions(ctx context.Context) ([]*entity.ChatSessionSummary, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	stats, err := uow.ChatMessageRepository().SessionStats(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*entity.ChatSessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		st := stats[sess.Id]
		summaries = append(summaries, &entity.ChatSessionSummary{
			Id:            sess.Id,
			Title:         sess.Title,
			MessageCount:  st.Count,
			LastMessageAt: st.LastMessageAt,
			CreatedAt:     sess.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *ChatStoreImpl) RenameSession(ctx context.Context, id uuid.UUID, title string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
	if err != nil {
		return err
	}
	if sess == nil {
		return contract.ErrSessionNotFound
	}

	sess.Title = title
	now := time.Now()
	sess.UpdatedAt = &now
	if err := uow.ChatSessionRepository().Update(ctx, sess); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *ChatStoreImpl) AppendMessage(ctx context.Context, chatSessionId uuid.UUID, message *entity.ChatMessage) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatSessionId}, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, contract.ErrSessionNotFound
	}

	count, err := uow.ChatMessageRepository().Count(ctx, specification.ByChatSessionID{ChatSessionID: chatSessionId})
	if err != nil {
		return nil, err
	}

	msg := message.Clone()
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	msg.ChatSessionId = chatSessionId
	msg.CreatedAt = time.Now()

	if err := uow.ChatMessageRepository().Create(ctx, msg, int(count)); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ChatStoreImpl) UpdateMessage(ctx context.Context, chatSessionId, messageId uuid.UUID, mutate func(*entity.ChatMessage)) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatSessionId}, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, contract.ErrSessionNotFound
	}

	msg, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.ByID{ID: messageId},
		specification.ByChatSessionID{ChatSessionID: chatSessionId},
		specification.WithMessageGraph{},
	)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, contract.ErrMessageNotFound
	}

	before := msg.Clone()
	mutate(msg)
	now := time.Now()
	msg.UpdatedAt = &now

	if err := uow.ChatMessageRepository().Save(ctx, msg); err != nil {
		return nil, err
	}

	if !citationsEqual(before.Citations, msg.Citations) {
		if err := uow.ChatCitationRepository().ReplaceForMessage(ctx, messageId, msg.Citations); err != nil {
			return nil, err
		}
	}

	// Comments are append only; persist the ones the mutation added.
	existing := make(map[uuid.UUID]struct{}, len(before.Comments))
	for _, c := range before.Comments {
		existing[c.Id] = struct{}{}
	}
	for i := range msg.Comments {
		if _, ok := existing[msg.Comments[i].Id]; ok {
			continue
		}
		if err := uow.ChatCommentRepository().Create(ctx, messageId, &msg.Comments[i]); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func citationsEqual(a, b []entity.Citation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Label != b[i].Label || a[i].DocumentId != b[i].DocumentId {
			return false
		}
		ap, bp := a[i].Page, b[i].Page
		if (ap == nil) != (bp == nil) {
			return false
		}
		if ap != nil && *ap != *bp {
			return false
		}
	}
	return true
}
