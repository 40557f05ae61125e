package mapper

import (
	"encoding/json"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"

	"github.com/google/uuid"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// Message Mappers

// ChatMessageToEntity maps the full message graph, expecting Citations and
// Comments preloaded on the model.
func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	var markers []string
	if len(msg.Markers) > 0 {
		_ = json.Unmarshal(msg.Markers, &markers)
	}

	out := &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Finalized:     msg.Finalized,
		Reactions:     entity.Reactions{Up: msg.UpCount, Down: msg.DownCount},
		Markers:       markers,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
	}

	for _, c := range msg.Citations {
		out.Citations = append(out.Citations, entity.Citation{
			Label:      c.Label,
			DocumentId: c.DocumentId,
			Page:       c.Page,
		})
	}
	for _, c := range msg.Comments {
		out.Comments = append(out.Comments, entity.Comment{
			Id:        c.Id,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

// ChatMessageToModel maps the core message row only; citations and comments
// are persisted through their own repositories.
func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	var markers []byte
	if len(msg.Markers) > 0 {
		markers, _ = json.Marshal(msg.Markers)
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Finalized:     msg.Finalized,
		UpCount:       msg.Reactions.Up,
		DownCount:     msg.Reactions.Down,
		Markers:       markers,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ChatMapper) CitationsToModels(messageId uuid.UUID, citations []entity.Citation) []model.ChatCitation {
	models := make([]model.ChatCitation, 0, len(citations))
	for i, c := range citations {
		models = append(models, model.ChatCitation{
			Id:            uuid.New(),
			ChatMessageId: messageId,
			Label:         c.Label,
			DocumentId:    c.DocumentId,
			Page:          c.Page,
			Position:      i,
		})
	}
	return models
}
