package implementation

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatCommentRepositoryImpl struct {
	db *gorm.DB
}

func NewChatCommentRepository(db *gorm.DB) contract.ChatCommentRepository {
	return &ChatCommentRepositoryImpl{
		db: db,
	}
}

func (r *ChatCommentRepositoryImpl) Create(ctx context.Context, messageId uuid.UUID, comment *entity.Comment) error {
	if comment.Id == uuid.Nil {
		comment.Id = uuid.New()
	}
	m := &model.ChatComment{
		Id:            comment.Id,
		ChatMessageId: messageId,
		Body:          comment.Body,
		CreatedAt:     comment.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	comment.Id = m.Id
	comment.CreatedAt = m.CreatedAt
	return nil
}
