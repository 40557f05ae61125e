package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type GetAllSessionsResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Chat      string        `json:"chat"`
	Finalized bool          `json:"finalized"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations,omitempty"`
	Reactions ReactionsDTO  `json:"reactions"`
	Comments  []CommentDTO  `json:"comments,omitempty"`
}

type CitationDTO struct {
	Label      string `json:"label"`
	DocumentId string `json:"document_id"`
	Page       *int   `json:"page,omitempty"`
}

type ReactionsDTO struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

type CommentDTO struct {
	Id        uuid.UUID `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentDTO is one entry of the caller-supplied document context for a
// streaming request.
type DocumentDTO struct {
	Id   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID     `json:"chat_session_id" validate:"required"`
	Chat          string        `json:"chat" validate:"required"`
	Documents     []DocumentDTO `json:"documents,omitempty" validate:"dive"`
}

type ReactRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// Stream event payloads, serialized onto the SSE channel.

type StreamChunkPayload struct {
	Delta string `json:"delta"`
}

type StreamDonePayload struct {
	Message GetChatHistoryResponse `json:"message"`
}

type StreamErrorPayload struct {
	Message string `json:"message"`
}
