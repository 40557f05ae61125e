package service

import (
	"context"
	"strings"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/feedback"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/stream"

	"github.com/google/uuid"
)

// IChatService is the public entry point of the engine: session lifecycle,
// stream starts and feedback. Argument validation and delegation only; all
// state lives in the store and the dispatcher.
type IChatService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	StartStream(ctx context.Context, request *dto.SendChatRequest) (*stream.Subscription, error)
	CancelStream(ctx context.Context, sessionId uuid.UUID) error
	React(ctx context.Context, sessionId, messageId uuid.UUID, request *dto.ReactRequest) (*dto.ReactionsDTO, error)
	Comment(ctx context.Context, sessionId, messageId uuid.UUID, request *dto.CommentRequest) ([]*dto.CommentDTO, error)
}

type chatService struct {
	store      contract.ChatStore
	dispatcher *stream.Dispatcher
	aggregator *feedback.Aggregator
	log        logger.ILogger
}

func NewChatService(
	store contract.ChatStore,
	dispatcher *stream.Dispatcher,
	aggregator *feedback.Aggregator,
	log logger.ILogger,
) IChatService {
	return &chatService{
		store:      store,
		dispatcher: dispatcher,
		aggregator: aggregator,
		log:        log,
	}
}

func (cs *chatService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = constant.SessionDefaultTitle
	}

	sess, err := cs.store.CreateSession(ctx, title)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: sess.Id, Title: sess.Title}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error) {
	summaries, err := cs.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:            s.Id,
			Title:         s.Title,
			MessageCount:  s.MessageCount,
			LastMessageAt: s.LastMessageAt,
			CreatedAt:     s.CreatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	sess, err := cs.store.GetSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		response = append(response, messageToHistoryDTO(msg))
	}
	return response, nil
}

func (cs *chatService) StartStream(ctx context.Context, request *dto.SendChatRequest) (*stream.Subscription, error) {
	// First exchange names the session after the prompt.
	if sess, err := cs.store.GetSession(ctx, request.ChatSessionId); err == nil && len(sess.Messages) == 0 {
		if err := cs.store.RenameSession(ctx, sess.Id, deriveTitle(request.Chat)); err != nil {
			cs.log.Warn("ChatService", "Failed to rename session", map[string]interface{}{"error": err.Error()})
		}
	}

	docs := make([]entity.Document, 0, len(request.Documents))
	for _, d := range request.Documents {
		docs = append(docs, entity.Document{Id: d.Id, Name: d.Name, Type: d.Type})
	}

	return cs.dispatcher.Start(ctx, request.ChatSessionId, request.Chat, docs)
}

func (cs *chatService) CancelStream(ctx context.Context, sessionId uuid.UUID) error {
	return cs.dispatcher.Cancel(sessionId)
}

func (cs *chatService) React(ctx context.Context, sessionId, messageId uuid.UUID, request *dto.ReactRequest) (*dto.ReactionsDTO, error) {
	reactions, err := cs.aggregator.React(ctx, sessionId, messageId, feedback.Direction(request.Direction))
	if err != nil {
		return nil, err
	}
	return &dto.ReactionsDTO{Up: reactions.Up, Down: reactions.Down}, nil
}

func (cs *chatService) Comment(ctx context.Context, sessionId, messageId uuid.UUID, request *dto.CommentRequest) ([]*dto.CommentDTO, error) {
	comments, err := cs.aggregator.Comment(ctx, sessionId, messageId, request.Text)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.CommentDTO, 0, len(comments))
	for _, c := range comments {
		response = append(response, &dto.CommentDTO{Id: c.Id, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	return response, nil
}

func messageToHistoryDTO(msg *entity.ChatMessage) *dto.GetChatHistoryResponse {
	out := &dto.GetChatHistoryResponse{
		Id:        msg.Id,
		Role:      msg.Role,
		Chat:      msg.Content,
		Finalized: msg.Finalized,
		CreatedAt: msg.CreatedAt,
		Reactions: dto.ReactionsDTO{Up: msg.Reactions.Up, Down: msg.Reactions.Down},
	}
	for _, c := range msg.Citations {
		out.Citations = append(out.Citations, dto.CitationDTO{Label: c.Label, DocumentId: c.DocumentId, Page: c.Page})
	}
	for _, c := range msg.Comments {
		out.Comments = append(out.Comments, dto.CommentDTO{Id: c.Id, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	return out
}

// MessageToHistoryDTO converts a finalized message for the done event.
func MessageToHistoryDTO(msg *entity.ChatMessage) *dto.GetChatHistoryResponse {
	return messageToHistoryDTO(msg)
}

func deriveTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	runes := []rune(title)
	if len(runes) > constant.SessionTitleMaxRunes {
		title = string(runes[:constant.SessionTitleMaxRunes]) + "…"
	}
	if title == "" {
		title = constant.SessionDefaultTitle
	}
	return title
}
