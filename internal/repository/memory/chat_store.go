package memory

import (
	"context"
	"sync"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"

	"github.com/google/uuid"
)

// sessionRecord pairs a session with its own lock so that mutations on
// different sessions never contend.
type sessionRecord struct {
	mu      sync.Mutex
	session *entity.ChatSession
}

// ChatStore is the in-process implementation of contract.ChatStore. It is
// the default backend when no database DSN is configured and the one the
// engine tests run against.
type ChatStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionRecord

	// order holds session ids newest-first for stable listing.
	order []uuid.UUID
}

var _ contract.ChatStore = (*ChatStore)(nil)

func NewChatStore() *ChatStore {
	return &ChatStore{
		sessions: make(map[uuid.UUID]*sessionRecord),
	}
}

func (s *ChatStore) CreateSession(ctx context.Context, title string) (*entity.ChatSession, error) {
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.Id] = &sessionRecord{session: sess}
	s.order = append([]uuid.UUID{sess.Id}, s.order...)
	s.mu.Unlock()

	return cloneSession(sess), nil
}

func (s *ChatStore) GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneSession(rec.session), nil
}

func (s *ChatStore) ListSessions(ctx context.Context) ([]*entity.ChatSessionSummary, error) {
	s.mu.RLock()
	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	summaries := make([]*entity.ChatSessionSummary, 0, len(ids))
	for _, id := range ids {
		rec, err := s.record(id)
		if err != nil {
			continue
		}
		rec.mu.Lock()
		summary := &entity.ChatSessionSummary{
			Id:           rec.session.Id,
			Title:        rec.session.Title,
			MessageCount: len(rec.session.Messages),
			CreatedAt:    rec.session.CreatedAt,
		}
		if n := len(rec.session.Messages); n > 0 {
			t := rec.session.Messages[n-1].CreatedAt
			summary.LastMessageAt = &t
		}
		rec.mu.Unlock()
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *ChatStore) RenameSession(ctx context.Context, id uuid.UUID, title string) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	now := time.Now()
	rec.session.Title = title
	rec.session.UpdatedAt = &now
	return nil
}

func (s *ChatStore) AppendMessage(ctx context.Context, chatSessionId uuid.UUID, message *entity.ChatMessage) (*entity.ChatMessage, error) {
	rec, err := s.record(chatSessionId)
	if err != nil {
		return nil, err
	}

	msg := message.Clone()
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.ChatSessionId = chatSessionId

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.session.Messages = append(rec.session.Messages, msg)
	return msg.Clone(), nil
}

func (s *ChatStore) UpdateMessage(ctx context.Context, chatSessionId, messageId uuid.UUID, mutate func(*entity.ChatMessage)) (*entity.ChatMessage, error) {
	rec, err := s.record(chatSessionId)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, msg := range rec.session.Messages {
		if msg.Id == messageId {
			mutate(msg)
			now := time.Now()
			msg.UpdatedAt = &now
			return msg.Clone(), nil
		}
	}
	return nil, contract.ErrMessageNotFound
}

func (s *ChatStore) record(id uuid.UUID) (*sessionRecord, error) {
	s.mu.RLock()
	rec, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, contract.ErrSessionNotFound
	}
	return rec, nil
}

func cloneSession(sess *entity.ChatSession) *entity.ChatSession {
	c := &entity.ChatSession{
		Id:        sess.Id,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
	}
	if sess.UpdatedAt != nil {
		t := *sess.UpdatedAt
		c.UpdatedAt = &t
	}
	c.Messages = make([]*entity.ChatMessage, len(sess.Messages))
	for i, m := range sess.Messages {
		c.Messages[i] = m.Clone()
	}
	return c
}
